package rule

import (
	"fmt"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ParseGrammarTOML decodes a single TOML grammar document into a Grammar.
//
// TOML has no notion of Koine's tagged-variant Rule Node out of the box, so
// this loader takes the same path the cogentcore-core config layer does for
// its own multi-format settings: decode into a generic tree, then reuse the
// YAML-based decoder's tagged-variant logic over that tree. This keeps one
// normalization path for both file formats instead of a second bespoke one.
func ParseGrammarTOML(data []byte) (*Grammar, error) {
	var generic map[string]interface{}
	if err := toml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("koine: invalid grammar TOML: %w", err)
	}
	asYAML, err := yaml.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("koine: internal: re-marshal of TOML grammar failed: %w", err)
	}
	return ParseGrammarYAML(asYAML)
}
