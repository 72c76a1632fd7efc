package drive

// mimeFolder marks container nodes in listing results.
const mimeFolder = "application/vnd.google-apps.folder"

// Entry describes one downloadable file discovered during a tree walk.
// Size is the declared byte count from Drive metadata and is trusted
// over the actual stream length. RelativePath is slash-joined relative
// to the walk root and becomes the archive entry name verbatim.
type Entry struct {
	ID           string
	Size         int64
	RelativePath string
}

// Metadata is the subset of file metadata the CLI needs to place the
// output archive.
type Metadata struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Parents []string `json:"parents"`
}

// SkippedEntry records a child that enumeration left out of the walk.
type SkippedEntry struct {
	Path   string
	Reason string
}

// WalkStats summarizes one tree enumeration.
type WalkStats struct {
	Folders    int
	Files      int
	TotalBytes int64
	Skipped    []SkippedEntry
}

// childFile is one record from the files.list endpoint. Drive encodes
// size as a decimal string and omits it entirely for native documents.
type childFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     string `json:"size"`
}

type fileList struct {
	NextPageToken string      `json:"nextPageToken"`
	Files         []childFile `json:"files"`
}
