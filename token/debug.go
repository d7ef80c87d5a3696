package token

import (
	"fmt"
	"io"
)

// DumpTokens renders a readable listing of a token stream to w, one token
// per line with its position. Used by the compile command's debug modes.
func DumpTokens(w io.Writer, tokens []Token) {
	for i, tok := range tokens {
		fmt.Fprintf(w, "%4d  %d:%d\t%-14s %q\n", i, tok.Line, tok.Column, tok.Type, tok.Value)
	}
}
