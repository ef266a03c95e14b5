package config

type WorkerKeyStruct struct {
	PersistAnswersQueue string
	EvaluationQueue     string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue: "persist_answers_queue",
	EvaluationQueue:     "evaluation_queue",
}
