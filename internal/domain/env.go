package domain

// Соглашения по переменным окружения, через которые движок
// общается с командами task-узлов.
const (
	// ParamEnvPrefix — префикс параметров run'а; значение
	// сериализуется в JSON.
	ParamEnvPrefix = "PIPEVINE_PRM_"

	// TrackEnvPrefix — префикс переменных, снимок которых
	// сохраняется в step log как пользовательские метаданные.
	TrackEnvPrefix = "PIPEVINE_TRACK_"

	// SecretEnvPrefix — префикс секретов, запрошенных узлом.
	SecretEnvPrefix = "PIPEVINE_SECRET_"

	// EmitFileEnv — путь к файлу эмиссии: команда дописывает в него
	// JSON-строки EmitRecord, движок читает их после завершения.
	EmitFileEnv = "PIPEVINE_EMIT"

	// RunIDEnv — идентификатор текущего run'а.
	RunIDEnv = "PIPEVINE_RUN_ID"

	// StepEnv — internal name исполняемого узла.
	StepEnv = "PIPEVINE_STEP"
)
