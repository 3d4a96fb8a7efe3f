package ports

// SnapshotRepository is where the task manager keeps its primary document.
type SnapshotRepository interface {
	// Read returns the stored document or an error wrapping os.ErrNotExist.
	Read() ([]byte, error)
	// Write replaces the stored document.
	Write(data []byte) error
}
