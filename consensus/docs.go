package consensus

//
//  votes (rpc / peers)
//        |
//        v
//  +--------------+   +2/3 for one hash    +-------------------------+
//  | peerMsgQueue | ---------------------> | Answer (Commit/Reject)  |
//  +--------------+   VoteStorage.Store    +------------+------------+
//                                                       |
//            NotSentNotProcessed --(fire EventCommit / EventReject)--> SentNotProcessed
//                                                       |
//            SentNotProcessed --(MarkProcessed, after the gate applied it)--> SentProcessed
//

//ConsensusState - 投票聚合服务，main goroutine
//	- PeerSet - 每个round的参与节点，只接受集合内节点的投票
//	- VoteStorage - 每个round的投票状态和处理进度，过期的round由CleanupStrategy释放
//	- EventSwitch - 每个round的结果只广播一次，由ordering gate监听
