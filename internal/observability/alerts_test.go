package observability

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

type alertSpec struct {
	Groups []alertGroup `yaml:"groups"`
}

func TestCatalogAlertRules(t *testing.T) {
	path := filepath.Join("..", "..", "deploy", "prometheus", "alerts", "catalog.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read alert file: %v", err)
	}

	var spec alertSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		t.Fatalf("failed to unmarshal alert file: %v", err)
	}

	var catalogGroup *alertGroup
	for i := range spec.Groups {
		if spec.Groups[i].Name == "catalog" {
			catalogGroup = &spec.Groups[i]
			break
		}
	}
	if catalogGroup == nil {
		t.Fatal("catalog alert group missing")
	}

	expected := map[string]string{
		"CatalogHighErrorRate":      "critical",
		"CatalogCacheMissRatioHigh": "warning",
		"CatalogJobFailures":        "warning",
	}
	seen := map[string]bool{}
	for _, rule := range catalogGroup.Rules {
		severity, ok := expected[rule.Alert]
		if !ok {
			continue
		}
		seen[rule.Alert] = true
		if rule.Labels["severity"] != severity {
			t.Errorf("%s: expected severity %q, got %q", rule.Alert, severity, rule.Labels["severity"])
		}
		if rule.Expr == "" {
			t.Errorf("%s: expr must not be empty", rule.Alert)
		}
		if rule.Annotations["runbook"] == "" {
			t.Errorf("%s: runbook annotation missing", rule.Alert)
		}
	}
	for name := range expected {
		if !seen[name] {
			t.Errorf("alert %s missing from catalog group", name)
		}
	}
}
