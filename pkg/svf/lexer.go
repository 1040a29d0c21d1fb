package svf

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// commandLexer tokenizes a single already-accumulated, semicolon-stripped
// SVF command into words and parenthesis markers. Splitting "(" and ")"
// out as their own tokens (rather than trimming them off the first/last
// word by hand) means a hex payload like "TDI (DEAD)" and one split
// across lines as "TDI (\nDE AD\n)" tokenize identically: the words
// between LParen and RParen are simply concatenated.
var commandLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "Word", Pattern: `[^\s()]+`},
})

var whitespaceType = commandLexer.Symbols()["Whitespace"]

// tokenize lexes command into its constituent tokens, dropping
// whitespace. LParen/RParen tokens retain their literal "(" / ")" value
// so callers can recognize payload boundaries.
func tokenize(command string) ([]string, error) {
	lex, err := commandLexer.Lex("", strings.NewReader(command))
	if err != nil {
		return nil, err
	}
	var tokens []string
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, err
		}
		if tok.EOF() {
			break
		}
		if tok.Type == whitespaceType {
			continue
		}
		tokens = append(tokens, tok.Value)
	}
	return tokens, nil
}
