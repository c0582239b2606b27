package types

// SupermajorityChecker 判断current个相同的投票在all个节点中是否构成quorum
// 实现必须是确定的，并且对current单调
type SupermajorityChecker interface {
	HasSupermajority(current, all uint64) bool
}

// ConsistencyModel 决定使用哪种quorum
type ConsistencyModel uint8

const (
	ConsistencyModelBFT = ConsistencyModel(1)
	ConsistencyModelCFT = ConsistencyModel(2)
)

func (m ConsistencyModel) String() string {
	switch m {
	case ConsistencyModelBFT:
		return "bft"
	case ConsistencyModelCFT:
		return "cft"
	default:
		return "UnkownConsistencyModel"
	}
}

// ParseConsistencyModel 解析配置中的一致性模型
func ParseConsistencyModel(s string) (ConsistencyModel, bool) {
	switch s {
	case "bft", "":
		return ConsistencyModelBFT, true
	case "cft":
		return ConsistencyModelCFT, true
	default:
		return 0, false
	}
}

// NewSupermajorityChecker 为一致性模型创建checker
func NewSupermajorityChecker(m ConsistencyModel) SupermajorityChecker {
	if m == ConsistencyModelCFT {
		return CFTChecker{}
	}
	return BFTChecker{}
}

// BFTChecker 容忍f个拜占庭节点，需要超过2/3的节点
type BFTChecker struct{}

func (BFTChecker) HasSupermajority(current, all uint64) bool {
	return current <= all && current*3 > all*2
}

// CFTChecker 容忍f个崩溃节点，需要超过1/2的节点
type CFTChecker struct{}

func (CFTChecker) HasSupermajority(current, all uint64) bool {
	return current <= all && current*2 > all
}
