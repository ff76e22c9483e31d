package plan

import "regexp"

// Term is one entry of a completeness vocabulary.
type Term struct {
	// Name identifies the term in reports.
	Name string
	// Label is the text appended to a statement that lacks the term.
	Label string

	pattern *regexp.Regexp
}

// In reports whether text mentions the term.
func (t Term) In(text string) bool {
	return t.pattern.MatchString(text)
}

func term(name, label, expr string) Term {
	return Term{Name: name, Label: label, pattern: regexp.MustCompile(`(?i)` + expr)}
}

// APIVocabulary is the six-term completeness vocabulary for api Contracts.
var APIVocabulary = []Term{
	term("authz", "AUTHZ(scopes)", `\bauth(z|orization)\b`),
	term("rate_limit", "RATE LIMIT(quota tier)", `\brate[ -]?limit|\bquotas?\b`),
	term("idempotency", "IDEMPOTENCY(key)", `\bidempoten(cy|t)\b`),
	term("timeouts", "TIMEOUTS(ms)", `\btime-?outs?\b`),
	term("error_taxonomy", "ERROR TAXONOMY(codes)", `\berrors?\s+(taxonomy|codes?|model)\b|\btaxonomy\b`),
	term("observability", "OBSERVABILITY(logs/metrics/spans)", `\bobservability\b|\blog(s|ging)?\b|\bmetrics?\b|\bspans?\b|\btrac(e|es|ing)\b`),
}

// DataLifecycle is the eight-term lifecycle vocabulary for data Contracts.
var DataLifecycle = []Term{
	term("schema", "schema", `\bschemas?\b`),
	term("migration", "migration", `\bmigrations?\b`),
	term("retention", "retention", `\bretention\b`),
	term("pii", "PII", `\bpii\b`),
	term("region", "region", `\bregions?\b|\bresidency\b`),
	term("index", "index", `\bindex(es)?\b|\bindices\b`),
	term("backup", "backup", `\bbackups?\b`),
	term("restore", "restore", `\brestor(e|es|ation)\b`),
}

// Topics are the sixteen subsystem topics the domain-coverage floor counts.
var Topics = []Term{
	term("identity", "identity", `\bidentity\b|\bauthenticat\w*|\blog[- ]?in\b|\bsign[- ]?in\b`),
	term("users", "users", `\busers?\b|\bprofiles?\b|\baccounts?\b`),
	term("preferences", "preferences", `\bpreferences?\b|\bsettings\b`),
	term("navigation", "navigation", `\bnavigation\b|\brouting\b|\bmenus?\b`),
	term("connectivity", "connectivity", `\bconnectivity\b|\boffline\b|\bnetwork\b`),
	term("data-storage", "data storage", `\bstorage\b|\bdatabases?\b|\bpersist\w*`),
	term("caching", "caching", `\bcach(e|es|ed|ing)\b`),
	term("queues", "queues", `\bqueues?\b|\bmessag(e|es|ing)\b|\bbackground jobs?\b`),
	term("secrets", "secrets", `\bsecrets?\b|\bcredentials?\b|\bvault\b`),
	term("observability", "observability", `\bobservability\b|\bmonitoring\b|\btelemetry\b`),
	term("analytics", "analytics", `\banalytics\b|\binsights?\b`),
	term("feature-flags", "feature flags", `\bfeature[- ]flags?\b|\btoggles?\b`),
	term("security", "security", `\bsecurity\b|\bencrypt\w*|\bpermissions?\b`),
	term("i18n", "i18n", `\bi18n\b|\binternationali[sz]ation\b|\blocali[sz]ation\b|\btranslations?\b`),
	term("notifications", "notifications", `\bnotifications?\b|\bpush\b|\balerts?\b`),
	term("payments", "payments", `\bpayments?\b|\bbilling\b|\bcheckout\b|\bsubscriptions?\b`),
}

// Missing returns the terms of vocab that text does not mention, in
// vocabulary order.
func Missing(vocab []Term, text string) []Term {
	var out []Term
	for _, t := range vocab {
		if !t.In(text) {
			out = append(out, t)
		}
	}
	return out
}

// Mentioned counts the terms of vocab that text mentions.
func Mentioned(vocab []Term, text string) int {
	return len(vocab) - len(Missing(vocab, text))
}

// Operation is a CRUD operation inferred from a ChangeSpec statement.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

var operationPatterns = []struct {
	op      Operation
	pattern *regexp.Regexp
}{
	{OpCreate, regexp.MustCompile(`(?i)\b(creat(e|es|ed|ing)|add(s|ed|ing)?|new|register(s|ed|ing)?|writ(e|es|ing)|wrote|written|stor(e|es|ed|ing)|insert(s|ed|ing)?|upload(s|ed|ing)?|submit(s|ted|ting)?)\b`)},
	{OpRead, regexp.MustCompile(`(?i)\b(read(s|ing)?|get(s|ting)?|list(s|ed|ing)?|view(s|ed|ing)?|fetch(es|ed|ing)?|show(s|n|ed|ing)?|search(es|ed|ing)?|load(s|ed|ing)?|display(s|ed|ing)?)\b`)},
	{OpUpdate, regexp.MustCompile(`(?i)\b(updat(e|es|ed|ing)|edit(s|ed|ing)?|modif(y|ies|ied|ying)|chang(e|es|ed|ing)|writ(e|es|ing)|wrote|written|stor(e|es|ed|ing)|sav(e|es|ed|ing)|patch(es|ed|ing)?)\b`)},
	{OpDelete, regexp.MustCompile(`(?i)\b(delet(e|es|ed|ing)|remov(e|es|ed|ing)|archiv(e|es|ed|ing)|purg(e|es|ed|ing)|cancel(s|ed|led|ing|ling)?)\b`)},
}

// InferOperations returns the CRUD operations a statement mentions, in
// create/read/update/delete order. A statement mentioning none yields
// create alone.
func InferOperations(stmt string) []Operation {
	var ops []Operation
	for _, p := range operationPatterns {
		if p.pattern.MatchString(stmt) {
			ops = append(ops, p.op)
		}
	}
	if len(ops) == 0 {
		return []Operation{OpCreate}
	}
	return ops
}
