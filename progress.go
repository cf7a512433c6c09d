package unitypackage

// ProgressEvent represents a progress update during pack or unpack.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Path is the archived pathname currently being processed, if applicable.
	Path string

	// BytesDone is the number of bytes completed in the current stage.
	BytesDone uint64

	// BytesTotal is the total bytes for the current stage.
	// Zero indicates the total is unknown.
	BytesTotal uint64

	// EntriesDone is the number of catalog entries completed.
	EntriesDone int

	// EntriesTotal is the total number of entries.
	// Zero indicates the total is unknown (e.g., while scanning).
	EntriesTotal int
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

// Progress stages for pack and unpack.
const (
	// StageCataloging indicates the source tree is being walked.
	StageCataloging ProgressStage = iota

	// StageArchiving indicates entries are being written to the tar stream.
	StageArchiving

	// StageCompressing indicates the tar stream is being wrapped in the envelope.
	StageCompressing

	// StageDecompressing indicates the envelope is being decoded.
	StageDecompressing

	// StageScanning indicates tar members are being staged.
	StageScanning

	// StageResolving indicates staged entries are being written to the destination.
	StageResolving
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageCataloging:
		return "cataloging"
	case StageArchiving:
		return "archiving"
	case StageCompressing:
		return "compressing"
	case StageDecompressing:
		return "decompressing"
	case StageScanning:
		return "scanning"
	case StageResolving:
		return "resolving"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates. Operations call it from the
// calling goroutine.
type ProgressFunc func(ProgressEvent)

func report(fn ProgressFunc, ev ProgressEvent) {
	if fn != nil {
		fn(ev)
	}
}
