package metadata

/** @brief Runs on a worker; sends its result (success or not) on resultChan. */
type JobStart func(params interface{}, resultChan chan<- interface{}) error

/** @brief Receives what JobStart sent. */
type JobOnComplete func(paramsChan <-chan interface{})

/** @brief Describes a type of job */
type JobType int

const (
	/**
	 * @brief A general job that does not have any specific thread requirements.
	 * This means it matters little which job thread this job runs on.
	 */
	JOB_TYPE_GENERAL JobType = 0x02
	/**
	 * @brief A resource loading job. Resources should always load on the same thread
	 * to avoid potential disk thrashing.
	 */
	JOB_TYPE_RESOURCE_LOAD JobType = 0x04
)

type JobPriority int

const (
	JOB_PRIORITY_LOW JobPriority = iota
	JOB_PRIORITY_NORMAL
	JOB_PRIORITY_HIGH
)

/**
 * @brief Describes a job to be run.
 */
type JobTask struct {
	JobType  JobType
	Priority JobPriority
	/** @brief Data to be passed to OnStart. */
	InputParams interface{}
	/** @brief Invoked on a worker when the job starts. Required. */
	OnStart JobStart
	/** @brief Invoked when OnStart returned nil. Optional. */
	OnComplete JobOnComplete
	/** @brief Invoked when OnStart returned an error. Optional. */
	OnFailure JobOnComplete
	/** @brief Invoked after either outcome. Optional. */
	OnCompletionCallback func()
}
