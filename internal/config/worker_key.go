package config

type WorkerKeyStruct struct {
	PersistAutosaveQueue  string
	PersistStartQueue     string
	PersistViolationQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAutosaveQueue:  "persist_autosave_queue",
	PersistStartQueue:     "persist_start_queue",
	PersistViolationQueue: "persist_violation_queue",
}
