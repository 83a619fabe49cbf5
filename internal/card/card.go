package card

// Card is the fixed-shape dataset card document. Field order matches the
// serialized layout consumed by the dataset registry.
type Card struct {
	AnnotationsCreators []string       `json:"annotations_creators"`
	LanguageCreators    []string       `json:"language_creators"`
	Language            string         `json:"language"`
	License             string         `json:"license"`
	Multilinguality     []string       `json:"multilinguality"`
	SizeCategories      []string       `json:"size_categories"`
	SourceDatasets      []string       `json:"source_datasets"`
	TaskCategories      []string       `json:"task_categories"`
	TaskIDs             []string       `json:"task_ids"`
	PapersWithCodeID    *string        `json:"paperswithcode_id"`
	PrettyName          string         `json:"pretty_name"`
	Version             string         `json:"version"`
	Configs             []Config       `json:"configs"`
	Data                DataSection    `json:"data"`
	Metadata            map[string]any `json:"metadata"`
	DateCreated         string         `json:"date_created"`
	LastModified        string         `json:"last_modified"`
}

// Config names one dataset configuration and the files backing each split.
type Config struct {
	Name      string            `json:"name"`
	DataFiles map[string]string `json:"data_files"`
}

// DataSection describes the dataset contents. The size fields are emitted as
// null placeholders; the caller fills them in once split boundaries are known.
type DataSection struct {
	Description   string                    `json:"description"`
	Features      map[string]map[string]any `json:"features"`
	Splits        map[string]Split          `json:"splits"`
	DownloadSize  *int64                    `json:"download_size"`
	DatasetSize   *int64                    `json:"dataset_size"`
	SizeInBytes   *int64                    `json:"size_in_bytes"`
	TotalNumRows  *int64                    `json:"total_num_rows"`
	MissingValues map[string]float64        `json:"missing_values"`
	Statistics    map[string]any            `json:"statistics"`
}

// Split declares one dataset partition. NumBytes and NumExamples stay null
// until the caller populates them.
type Split struct {
	Name        string `json:"name"`
	NumBytes    *int64 `json:"num_bytes"`
	NumExamples *int64 `json:"num_examples"`
	DatasetName string `json:"dataset_name"`
}

// sizeCategories is the fixed enumeration of dataset size buckets.
var sizeCategories = []string{
	"n<1K", "1K<n<10K", "10K<n<100K", "100K<n<1M", "1M<n<10M",
	"10M<n<100M", "100M<n<1B", "1B<n<10B", "10B<n<100B", "100B<n<1T",
}

var splitNames = []string{"train", "validation", "test"}
