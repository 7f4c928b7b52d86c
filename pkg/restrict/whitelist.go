package restrict

// DefaultFunctions is the default function whitelist: aggregates, time
// bucketing, and a small set of scalar helpers. Everything else is rejected
// until explicitly registered via WithFunctions.
var DefaultFunctions = []string{
	"count",
	"sum",
	"avg",
	"min",
	"max",
	"date_trunc",
	"date_bin",
	"date_part",
	"coalesce",
	"nullif",
	"lower",
	"upper",
	"length",
	"abs",
	"round",
}

// binaryOps is the closed set of binary operators allowed in restricted
// queries. AND/OR arrive as boolean expressions and are always allowed.
var binaryOps = map[string]struct{}{
	"=":  {},
	"<>": {},
	"<":  {},
	"<=": {},
	">":  {},
	">=": {},
	"+":  {},
	"-":  {},
	"*":  {},
	"/":  {},
	"%":  {},
	"||": {},
}

// unaryOps is the closed set of unary operators.
var unaryOps = map[string]struct{}{
	"-": {},
	"+": {},
}
