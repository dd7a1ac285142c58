package agent

import "github.com/opentracing/opentracing-go/ext"

// Tags set on native spans.
const (
	TagTransactionType   = "transaction.type"
	TagTransactionUser   = "transaction.user"
	TagOutgoingType      = "outgoing.type"
	TagQueryType         = "query.type"
	TagQueryExecutions   = "query.execution_count"
	TagQueryRows         = "query.rows"
	transactionAttribute = "transaction.attr."
)

var (
	TagHTTPMethod  = string(ext.HTTPMethod)
	TagHTTPURL     = string(ext.HTTPUrl)
	TagPeerAddress = string(ext.PeerAddress)
)
