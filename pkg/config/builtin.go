package config

// builtinModuleOrder is the default, declared run order for the module
// orchestrator. A deployment's protocolx.yaml
// can add, override, or disable modules; it cannot reorder the built-ins,
// and modules it adds run after them. This is only the out-of-the-box
// registry assembled by Initialize when no user override exists.
var builtinModuleOrder = []string{
	"study_identification",
	"design_overview",
	"arms_and_interventions",
	"objectives_and_endpoints",
	"eligibility_criteria",
	"study_population",
	"dosing_and_administration",
	"procedures_and_assessments",
	"adverse_events_and_safety",
	"statistical_analysis",
	"sites_and_investigators",
	"amendments_history",
}

// builtinModules returns the built-in module registry contents, keyed by
// module id. Prompt/schema paths have the form modules/<id>/..., so the
// prompt templates ship in a modules/ subdirectory of the config tree.
func builtinModules() map[string]ModuleConfig {
	mk := func(id, instanceType string, identity ...string) ModuleConfig {
		return ModuleConfig{
			Description:     "built-in module: " + id,
			InstanceType:    instanceType,
			Pass1PromptPath: "modules/" + id + "/pass1.tmpl",
			Pass2PromptPath: "modules/" + id + "/pass2.tmpl",
			SchemaPath:      "modules/" + id + "/schema.json",
			Enabled:         true,
			IdentityFields:  identity,
		}
	}

	return map[string]ModuleConfig{
		"study_identification":      mk("study_identification", "StudyIdentification", "studyId", "protocolId"),
		"design_overview":           mk("design_overview", "StudyDesign", "studyId"),
		"arms_and_interventions":    mk("arms_and_interventions", "StudyArms", "studyId"),
		"objectives_and_endpoints":  mk("objectives_and_endpoints", "ObjectivesEndpoints", "studyId"),
		"eligibility_criteria":      mk("eligibility_criteria", "EligibilityCriteria", "studyId"),
		"study_population":          mk("study_population", "StudyPopulation", "studyId"),
		"dosing_and_administration": mk("dosing_and_administration", "DosingAdministration", "studyId"),
		"procedures_and_assessments": mk(
			"procedures_and_assessments", "ProceduresAssessments", "studyId"),
		"adverse_events_and_safety": mk("adverse_events_and_safety", "AdverseEventsSafety", "studyId"),
		"statistical_analysis":     mk("statistical_analysis", "StatisticalAnalysis", "studyId"),
		"sites_and_investigators":  mk("sites_and_investigators", "SitesInvestigators", "studyId"),
		"amendments_history":       mk("amendments_history", "AmendmentsHistory", "studyId"),
	}
}
