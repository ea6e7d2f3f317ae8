package graph

import "strings"

// SanitizeFTS5 turns free text into an FTS5 query in which every
// whitespace-separated token is a quoted string, so operators such as
// "-", ":", NOT, OR or "*" are matched as text. Embedded double quotes are
// doubled, which is how FTS5 escapes them inside a string.
//
//	flood-memory NOT x  ->  "flood-memory" "NOT" "x"
func SanitizeFTS5(query string) string {
	tokens := strings.Fields(query)
	for i, t := range tokens {
		tokens[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(tokens, " ")
}

// luceneEscaper escapes the characters that end or escape a Lucene phrase.
var luceneEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// SanitizeLucene is the Lucene counterpart of SanitizeFTS5, used for Neo4j
// fulltext indexes. Each token becomes a quoted phrase and all phrases are
// required, matching the implicit AND of FTS5.
func SanitizeLucene(query string) string {
	tokens := strings.Fields(query)
	for i, t := range tokens {
		tokens[i] = `"` + luceneEscaper.Replace(t) + `"`
	}
	return strings.Join(tokens, " AND ")
}
