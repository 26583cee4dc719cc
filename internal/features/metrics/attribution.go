package metrics

// contextSuffixes maps each attribution context to the name suffix its
// generated variant carries.
var contextSuffixes = map[AttributionContext]string{
	AttributionAssigned: "_assigned",
	AttributionBooked:   "_booked",
	AttributionDialer:   "_dialer",
}

var contextLabels = map[AttributionContext]string{
	AttributionAssigned: "by assigned rep",
	AttributionBooked:   "by booking setter",
	AttributionDialer:   "by dialer",
}

// GenerateFamily expands one base definition into its attributed variants
// plus the unsuffixed legacy form. Pure data transformation: the same base
// catalog always yields the same family. A table with no applicable
// contexts simply yields the legacy clone alone.
func GenerateFamily(base MetricDefinition) map[string]MetricDefinition {
	family := make(map[string]MetricDefinition)

	// legacy unsuffixed clone, no attribution set
	legacy := cloneDefinition(base)
	legacy.Attribution = ""
	family[legacy.Name] = legacy

	// special formulas hard-code their crediting columns
	if base.IsSpecial {
		return family
	}

	contexts := AttributionContextsFor(base.Table)
	for _, ctx := range contexts {
		variant := cloneDefinition(base)
		variant.Name = base.Name + contextSuffixes[ctx]
		variant.Description = base.Description + " (" + contextLabels[ctx] + ")"
		variant.Attribution = ctx
		variant.Options.Attributions = append([]AttributionContext{}, contexts...)
		family[variant.Name] = variant
	}

	return family
}

// StripContextSuffix removes a recognized attribution suffix from a variant
// name, returning the base name unchanged when no suffix matches.
func StripContextSuffix(name string) string {
	for _, suffix := range contextSuffixes {
		if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}

func cloneDefinition(def MetricDefinition) MetricDefinition {
	out := def
	out.SelectExprs = append([]string{}, def.SelectExprs...)
	out.WhereClauses = append([]string{}, def.WhereClauses...)
	out.Options.Attributions = append([]AttributionContext{}, def.Options.Attributions...)
	out.Options.Calculations = append([]CalculationMethod{}, def.Options.Calculations...)
	out.Options.DisplayModes = append([]DisplayMode{}, def.Options.DisplayModes...)
	out.Options.TimeFormats = append([]string{}, def.Options.TimeFormats...)
	return out
}
