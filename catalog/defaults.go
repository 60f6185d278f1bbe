package catalog

import "logitrack/store"

// DefaultSteps is the line as installed. Ultrasonic testing and marking are
// the only steps a pipe may skip.
func DefaultSteps() []store.StepDefinition {
	return []store.StepDefinition{
		{Number: 1, Code: string(Forming), Name: "Forming", Mandatory: true, StandardMin: 30, Color: "#2563eb", Icon: "cylinder"},
		{Number: 2, Code: string(TackWelding), Name: "Tack welding", Mandatory: true, StandardMin: 20, Color: "#7c3aed", Icon: "spark"},
		{Number: 3, Code: string(InnerWelding), Name: "Inner welding", Mandatory: true, StandardMin: 45, Color: "#db2777", Icon: "flame"},
		{Number: 4, Code: string(OuterWelding), Name: "Outer welding", Mandatory: true, StandardMin: 45, Color: "#dc2626", Icon: "flame"},
		{Number: 5, Code: string(VisualInspection), Name: "Visual inspection", Mandatory: true, StandardMin: 15, Color: "#ea580c", Icon: "eye"},
		{Number: 6, Code: string(Radiography), Name: "Radiography", Mandatory: true, StandardMin: 40, Color: "#ca8a04", Icon: "radiation"},
		{Number: 7, Code: string(HydroTest), Name: "Hydrostatic test", Mandatory: true, StandardMin: 35, Color: "#0891b2", Icon: "droplet"},
		{Number: 8, Code: string(Bevelling), Name: "Bevelling", Mandatory: true, StandardMin: 20, Color: "#059669", Icon: "scissors"},
		{Number: 9, Code: string(Ultrasonic), Name: "Ultrasonic testing", Mandatory: false, StandardMin: 25, Color: "#4f46e5", Icon: "wave"},
		{Number: 10, Code: string(Dimensional), Name: "Dimensional check", Mandatory: true, StandardMin: 15, Color: "#0d9488", Icon: "ruler"},
		{Number: 11, Code: string(Marking), Name: "Marking", Mandatory: false, StandardMin: 10, Color: "#65a30d", Icon: "tag"},
		{Number: 12, Code: string(FinalInspection), Name: "Final inspection", Mandatory: true, StandardMin: 20, Color: "#16a34a", Icon: "check"},
	}
}

func DefaultDelayReasons() []store.DelayReason {
	r := func(code, label, category string, cp Checkpoint) store.DelayReason {
		return store.DelayReason{Code: code, Label: label, Category: category, Checkpoint: string(cp), Active: true}
	}
	return []store.DelayReason{
		r("rec_supplier_late", "Supplier delivery late", "logistics", CheckpointReception),
		r("rec_no_transport", "Internal transport unavailable", "logistics", CheckpointReception),
		r("rec_crane_down", "Overhead crane unavailable", "technical", CheckpointReception),
		r("rec_missing_documents", "Mill certificate missing", "administrative", CheckpointReception),
		r("rec_no_staff", "No receiving staff on shift", "personnel", CheckpointReception),

		r("ins_uncoiler_fault", "Uncoiler fault", "technical", CheckpointInstallation),
		r("ins_setup_adjustment", "Line setup adjustment", "technical", CheckpointInstallation),
		r("ins_crew_change", "Crew change", "personnel", CheckpointInstallation),
		r("ins_coil_defect", "Coil surface defect found", "quality", CheckpointInstallation),

		r("step_machine_breakdown", "Machine breakdown", "technical", CheckpointStep),
		r("step_waiting_material", "Waiting for consumables", "logistics", CheckpointStep),
		r("step_operator_absent", "Operator absent", "personnel", CheckpointStep),
		r("step_quality_retest", "Quality retest", "quality", CheckpointStep),
		r("step_waiting_approval", "Waiting for approval", "administrative", CheckpointStep),
		r("step_power_outage", "Power outage", "other", CheckpointStep),
	}
}
