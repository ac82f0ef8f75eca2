package avro

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// ReportFormat selects how a result is rendered.
type ReportFormat string

const (
	ReportText     ReportFormat = "text"
	ReportJSON     ReportFormat = "json"
	ReportMarkdown ReportFormat = "markdown"
)

const reportRuleWidth = 60

// FormatValidationReport renders a validation result. Text output colors
// severities when the terminal supports it.
func FormatValidationReport(result ValidationResult, format ReportFormat) (string, error) {
	switch format {
	case ReportJSON:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal report: %w", err)
		}
		return string(data), nil
	case ReportMarkdown:
		return validationMarkdown(result), nil
	case ReportText, "":
		return validationText(result), nil
	default:
		return "", fmt.Errorf("unknown report format: %s", format)
	}
}

// FormatCompatibilityReport renders a compatibility result.
func FormatCompatibilityReport(result CompatibilityResult, format ReportFormat) (string, error) {
	switch format {
	case ReportJSON:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal report: %w", err)
		}
		return string(data), nil
	case ReportMarkdown:
		return compatibilityMarkdown(result), nil
	case ReportText, "":
		return compatibilityText(result), nil
	default:
		return "", fmt.Errorf("unknown report format: %s", format)
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func validationText(result ValidationResult) string {
	rule := strings.Repeat("=", reportRuleWidth)
	thinRule := strings.Repeat("-", reportRuleWidth)

	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "Avro Schema Validation Report")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Type: %s\n", orUnknown(string(result.SchemaType)))
	fmt.Fprintf(&b, "Valid: %s\n", yesNo(result.IsValid))
	fmt.Fprintf(&b, "Errors: %d\n", result.ErrorCount())
	fmt.Fprintf(&b, "Warnings: %d\n", result.WarningCount())
	fmt.Fprintf(&b, "Time: %.2fms\n", result.Duration.Seconds()*1000)
	fmt.Fprintln(&b, thinRule)

	if result.Schema != nil {
		fmt.Fprintf(&b, "Name: %s\n", result.Schema.FullName())
		if len(result.Schema.Fields) > 0 {
			fmt.Fprintf(&b, "Fields: %d\n", result.Schema.FieldCount())
		}
		if len(result.Schema.Symbols) > 0 {
			fmt.Fprintf(&b, "Symbols: %d\n", len(result.Schema.Symbols))
		}
		fmt.Fprintln(&b, thinRule)
	}

	if len(result.Errors) > 0 {
		fmt.Fprintf(&b, "\n%s\n", color.RedString("Errors:"))
		for _, d := range result.Errors {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", orDefault(d.Rule, "error"), d.Path, d.Message)
		}
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintf(&b, "\n%s\n", color.YellowString("Warnings:"))
		for _, d := range result.Warnings {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", orDefault(d.Rule, "warning"), d.Path, d.Message)
		}
	}
	if len(result.Info) > 0 {
		fmt.Fprintf(&b, "\n%s\n", color.CyanString("Info:"))
		for _, d := range result.Info {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", orDefault(d.Rule, "info"), d.Path, d.Message)
		}
	}

	fmt.Fprintln(&b, rule)
	return b.String()
}

func validationMarkdown(result ValidationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Avro Schema Validation Report\n\n")
	fmt.Fprintf(&b, "- **Type**: %s\n", orUnknown(string(result.SchemaType)))
	fmt.Fprintf(&b, "- **Valid**: %s\n", yesNo(result.IsValid))
	fmt.Fprintf(&b, "- **Errors**: %d\n", result.ErrorCount())
	fmt.Fprintf(&b, "- **Warnings**: %d\n", result.WarningCount())
	fmt.Fprintf(&b, "- **Time**: %.2fms\n", result.Duration.Seconds()*1000)

	if result.Schema != nil {
		fmt.Fprintf(&b, "\n## Schema Summary\n\n")
		fmt.Fprintf(&b, "- **Name**: %s\n", result.Schema.FullName())
		if len(result.Schema.Fields) > 0 {
			fmt.Fprintf(&b, "- **Fields**: %d\n", result.Schema.FieldCount())
		}
		if len(result.Schema.Symbols) > 0 {
			fmt.Fprintf(&b, "- **Symbols**: %d\n", len(result.Schema.Symbols))
		}
	}

	if len(result.Errors) > 0 {
		fmt.Fprintf(&b, "\n## Errors\n\n")
		fmt.Fprintln(&b, "| Path | Rule | Message |")
		fmt.Fprintln(&b, "|------|------|---------|")
		for _, d := range result.Errors {
			fmt.Fprintf(&b, "| `%s` | %s | %s |\n", d.Path, orDefault(d.Rule, "error"), d.Message)
		}
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintf(&b, "\n## Warnings\n\n")
		fmt.Fprintln(&b, "| Path | Rule | Message |")
		fmt.Fprintln(&b, "|------|------|---------|")
		for _, d := range result.Warnings {
			fmt.Fprintf(&b, "| `%s` | %s | %s |\n", d.Path, orDefault(d.Rule, "warning"), d.Message)
		}
	}
	return b.String()
}

func compatibilityText(result CompatibilityResult) string {
	rule := strings.Repeat("=", reportRuleWidth)
	thinRule := strings.Repeat("-", reportRuleWidth)

	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "Avro Schema Compatibility Report")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Mode: %s\n", result.Mode)
	fmt.Fprintf(&b, "Compatible: %s\n", yesNo(result.IsCompatible))
	fmt.Fprintf(&b, "Compatibility Level: %s\n", result.Level)
	fmt.Fprintf(&b, "Breaking Changes: %d\n", result.BreakingChangeCount())
	fmt.Fprintf(&b, "Time: %.2fms\n", result.Duration.Seconds()*1000)
	fmt.Fprintln(&b, thinRule)

	if len(result.AddedFields) > 0 {
		fmt.Fprintf(&b, "\nAdded Fields: %s\n", strings.Join(result.AddedFields, ", "))
	}
	if len(result.RemovedFields) > 0 {
		fmt.Fprintf(&b, "Removed Fields: %s\n", strings.Join(result.RemovedFields, ", "))
	}
	if len(result.ModifiedFields) > 0 {
		fmt.Fprintf(&b, "Modified Fields: %s\n", strings.Join(result.ModifiedFields, ", "))
	}

	if len(result.BreakingChanges) > 0 {
		fmt.Fprintf(&b, "\n%s\n", color.RedString("Breaking Changes:"))
		for _, c := range result.BreakingChanges {
			fmt.Fprintf(&b, "  [%s] %s\n", c.ChangeType, c.Path)
			fmt.Fprintf(&b, "    %s\n", c.Message)
			if c.Mitigation != "" {
				fmt.Fprintf(&b, "    Mitigation: %s\n", c.Mitigation)
			}
		}
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintf(&b, "\n%s\n", color.YellowString("Warnings:"))
		for _, c := range result.Warnings {
			fmt.Fprintf(&b, "  [%s] %s\n", c.ChangeType, c.Message)
		}
	}

	fmt.Fprintln(&b, rule)
	return b.String()
}

func compatibilityMarkdown(result CompatibilityResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Avro Schema Compatibility Report\n\n")
	fmt.Fprintf(&b, "- **Mode**: %s\n", result.Mode)
	fmt.Fprintf(&b, "- **Compatible**: %s\n", yesNo(result.IsCompatible))
	fmt.Fprintf(&b, "- **Compatibility Level**: %s\n", result.Level)
	fmt.Fprintf(&b, "- **Breaking Changes**: %d\n", result.BreakingChangeCount())

	if len(result.BreakingChanges) > 0 {
		fmt.Fprintf(&b, "\n## Breaking Changes\n\n")
		fmt.Fprintln(&b, "| Type | Path | Message | Mitigation |")
		fmt.Fprintln(&b, "|------|------|---------|------------|")
		for _, c := range result.BreakingChanges {
			fmt.Fprintf(&b, "| %s | `%s` | %s | %s |\n",
				c.ChangeType, c.Path, c.Message, orDefault(c.Mitigation, "-"))
		}
	}
	if len(result.AddedFields) > 0 {
		fmt.Fprintf(&b, "\n## Added Fields\n\n")
		for _, f := range result.AddedFields {
			fmt.Fprintf(&b, "- `%s`\n", f)
		}
	}
	if len(result.RemovedFields) > 0 {
		fmt.Fprintf(&b, "\n## Removed Fields\n\n")
		for _, f := range result.RemovedFields {
			fmt.Fprintf(&b, "- `%s`\n", f)
		}
	}
	if len(result.ModifiedFields) > 0 {
		fmt.Fprintf(&b, "\n## Modified Fields\n\n")
		for _, f := range result.ModifiedFields {
			fmt.Fprintf(&b, "- `%s`\n", f)
		}
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintf(&b, "\n## Warnings\n\n")
		for _, c := range result.Warnings {
			fmt.Fprintf(&b, "- [%s] %s\n", c.ChangeType, c.Message)
		}
	}
	return b.String()
}

func orUnknown(s string) string {
	return orDefault(s, "Unknown")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
