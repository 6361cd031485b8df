package filters

import "strings"

// jobTitleSynonyms expands common abbreviations into the spelled-out titles
// they stand for. One include value becomes an OR group over all variants.
var jobTitleSynonyms = map[string][]string{
	"ceo":  {"Chief Executive Officer"},
	"cto":  {"Chief Technical Officer", "Chief Technology Officer"},
	"cfo":  {"Chief Financial Officer"},
	"coo":  {"Chief Operating Officer"},
	"cmo":  {"Chief Marketing Officer"},
	"cio":  {"Chief Information Officer"},
	"ciso": {"Chief Information Security Officer"},
	"cpo":  {"Chief Product Officer"},
	"chro": {"Chief Human Resources Officer"},
	"vp":   {"Vice President"},
	"svp":  {"Senior Vice President"},
	"evp":  {"Executive Vice President"},
	"hr":   {"Human Resources"},
	"pm":   {"Product Manager", "Project Manager"},
	"swe":  {"Software Engineer"},
	"sre":  {"Site Reliability Engineer"},
	"md":   {"Managing Director"},
	"gm":   {"General Manager"},
}

// expandSynonyms returns the value plus any domain synonyms. The original
// value always stays first.
func expandSynonyms(value string) []string {
	syns, ok := jobTitleSynonyms[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return []string{value}
	}
	out := make([]string, 0, len(syns)+1)
	out = append(out, value)
	out = append(out, syns...)
	return out
}
