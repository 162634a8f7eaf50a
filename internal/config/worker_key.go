package config

type WorkerKeyStruct struct {
	PersistProgressQueue   string
	PersistViolationsQueue string
	PersistScreeningQueue  string
}

var WorkerKey = &WorkerKeyStruct{
	PersistProgressQueue:   "persist_progress_queue",
	PersistViolationsQueue: "persist_violations_queue",
	PersistScreeningQueue:  "persist_screening_queue",
}
