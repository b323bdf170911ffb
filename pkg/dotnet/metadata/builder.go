package metadata

// MetadataBuffer collects the four heaps and the tables of a metadata
// directory under construction.
type MetadataBuffer struct {
	Version     string
	Blobs       *BlobStreamBuffer
	Guids       *GuidStreamBuffer
	Strings     *StringsStreamBuffer
	UserStrings *UserStringsStreamBuffer
	Tables      *TablesStream
}

func NewMetadataBuffer(version string) *MetadataBuffer {
	if version == "" {
		version = DefaultVersion
	}
	return &MetadataBuffer{
		Version:     version,
		Blobs:       NewBlobStreamBuffer(),
		Guids:       NewGuidStreamBuffer(),
		Strings:     NewStringsStreamBuffer(),
		UserStrings: NewUserStringsStreamBuffer(),
		Tables:      NewTablesStream(),
	}
}

// CreateMetadata finishes every heap, sizes the table columns to match them
// and returns the assembled root.
func (b *MetadataBuffer) CreateMetadata() *Metadata {
	m := New(b.Version)
	m.Strings = b.Strings.CreateStream()
	m.UserStrings = b.UserStrings.CreateStream()
	m.Guids = b.Guids.CreateStream()
	m.Blobs = b.Blobs.CreateStream()

	b.Tables.HeapFlags = HeapFlags(len(m.Strings.Raw()), len(m.Guids.Raw()), len(m.Blobs.Raw()))
	m.TablesData = b.Tables.Bytes()
	return m
}
