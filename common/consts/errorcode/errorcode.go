package errorcode

const (
	OK              = "OK"
	BadArgument     = "BadArgument"
	OperationFailed = "OperationFailed"

	NoNodeAvailable = "NoNodeAvailable"
	NodeUnreachable = "NodeUnreachable"
	NodeRejected    = "NodeRejected"
	QuotaExceeded   = "QuotaExceeded"
	DuplicateOrder  = "DuplicateOrder"
	MatchNotFound   = "MatchNotFound"
	NodeNotFound    = "NodeNotFound"
)
