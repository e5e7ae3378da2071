package config

import (
	"fmt"
	"os"

	"github.com/kube-rca/migration-audit/internal/correlation"
	"gopkg.in/yaml.v3"
)

// trapRulesFile - TRAP_RULES_FILE 형식
//
//	rules:
//	  - type_key: linkDown
//	    attribute: ifDescr
type trapRulesFile struct {
	Rules []correlation.TrapRule `yaml:"rules"`
}

// LoadTrapRules - 파일 경로가 비어 있으면 기본 규칙 사용
func LoadTrapRules(path string) ([]correlation.TrapRule, error) {
	if path == "" {
		return correlation.DefaultTrapRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trap rules: %w", err)
	}
	return ParseTrapRules(data)
}

func ParseTrapRules(data []byte) ([]correlation.TrapRule, error) {
	var f trapRulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse trap rules: %w", err)
	}
	for i, r := range f.Rules {
		if r.TypeKey == "" || r.Attribute == "" {
			return nil, fmt.Errorf("%w: trap rule %d needs type_key and attribute", ErrInvalidConfig, i)
		}
	}
	return f.Rules, nil
}
