package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain markup untouched", `<a b="1"><c/></a>`, `<a b="1"><c/></a>`},
		{"stray quote", `<a>say "hi"</a>`, `<a>say &quot;hi&quot;</a>`},
		{"stray less than", `<a>1 < 2</a>`, `<a>1 &lt; 2</a>`},
		{"stray greater than", `<a>2 > 1</a>`, `<a>2 &gt; 1</a>`},
		{"unterminated tag", `<a>x <b</a>`, `<a>x &lt;b</a>`},
		{"dtd entity", `<a>&n;</a>`, `<a>&amp;n;</a>`},
		{"bare ampersand", `<a>R&D</a>`, `<a>R&amp;D</a>`},
		{"predefined entities kept", `<a>&amp;&lt;&gt;&quot;&apos;</a>`, `<a>&amp;&lt;&gt;&quot;&apos;</a>`},
		{"character references kept", `<a>&#12354;&#x3042;</a>`, `<a>&#12354;&#x3042;</a>`},
		{"broken character reference", `<a>&#x;</a>`, `<a>&amp;#x;</a>`},
		{"comment", `<!-- a < b & "c" --><a/>`, `<!-- a < b & "c" --><a/>`},
		{"cdata", `<a><![CDATA[x < y & "z"]]></a>`, `<a><![CDATA[x < y & "z"]]></a>`},
		{"processing instruction", `<?xml version="1.0"?><a/>`, `<?xml version="1.0"?><a/>`},
		{"end tag with space", `<a>x</a >`, `<a>x</a >`},
		{"single quoted attribute", `<a b='x>y'/>`, `<a b='x>y'/>`},
		{"attribute ampersand", `<a b="R&D"/>`, `<a b="R&amp;D"/>`},
		{"attribute without value", `<a b>x</a>`, `&lt;a b&gt;x</a>`},
		{
			"doctype with internal subset",
			"<!DOCTYPE JMdict [\n<!ENTITY n \"noun\">\n]><JMdict/>",
			"<!DOCTYPE JMdict [\n<!ENTITY n \"noun\">\n]><JMdict/>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}
