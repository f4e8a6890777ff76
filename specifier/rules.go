package specifier

import "regexp"

// Compile turns an extension map into the ordered specifier-rewrite rules of
// the first pass. One rule per non-declaration key: match a relative
// specifier ("./" or "../") ending in that suffix, keep the path prefix,
// swap the suffix for the target. Declaration entries are excluded; renaming
// declaration files is the rename pass's job, and their specifiers rarely
// appear as runtime imports.
//
// Rule order follows the canonical script-suffix order, though no two
// recognized suffixes can match the same specifier.
func (m ExtMap) Compile() (RegexMap, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	var rules RegexMap
	for _, ext := range scriptExts {
		t, ok := m[ext]
		if !ok {
			continue
		}
		rules = append(rules, Replacement{
			Pattern:  relativePattern(ext),
			Template: "${1}" + string(t),
		})
	}
	return rules, nil
}

// ScriptRules builds the narrow rule set used while renaming declaration
// files: relative specifiers ending in any neutral script suffix are pointed
// at the target module system's suffix, so a declaration tracks its sibling
// script's rename.
func ScriptRules(target Ext) RegexMap {
	return RegexMap{
		{Pattern: relativePattern(ExtJS), Template: "${1}" + string(target)},
	}
}

// CrossRules retargets specifiers already rewritten for one module system at
// the other one. Used by dual emission to derive the secondary variant from
// the primary's code.
func CrossRules(from, to Ext) RegexMap {
	rules := RegexMap{
		{Pattern: relativePattern(from), Template: "${1}" + string(to)},
	}
	if from != ExtJS {
		// Neutral suffixes survive when the script map had no .js entry.
		rules = append(rules, Replacement{Pattern: relativePattern(ExtJS), Template: "${1}" + string(to)})
	}
	return rules
}

// relativePattern matches a relative specifier with the given literal
// suffix, capturing everything before it.
func relativePattern(ext Ext) string {
	return `^(\.\.?/.*)` + regexp.QuoteMeta(string(ext)) + `$`
}
