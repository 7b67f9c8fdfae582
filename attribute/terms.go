package attribute

// Well-known controlled vocabulary term references used by the library
// model itself. The full vocabulary lives behind the cv.Resolver interface;
// only the terms with structural meaning to parsing and writing are named
// here.
const (
	// FormatVersion must be the first attribute of a library header.
	FormatVersion = "MS:1003186|library format version"

	// AttributeSetName marks an attribute line as an attribute set
	// application rather than a literal value.
	AttributeSetName = "MS:1003212|library attribute set name"

	// SpectrumName is the human-readable identifier indexed alongside the
	// spectrum key.
	SpectrumName = "MS:1003061|library spectrum name"

	// SpectrumKey and SpectrumIndex are bookkeeping terms some dialects
	// embed as attributes; the native writer derives them from structure
	// instead.
	SpectrumKey   = "MS:1003237|library spectrum key"
	SpectrumIndex = "MS:1003062|library spectrum index"

	// AnalyteMixture lists the analyte ids an interpretation covers, kept
	// equal to the sorted set of attached analytes.
	AnalyteMixture = "MS:1003163|analyte mixture members"

	// PeakAttribute declares one aggregation column of the peak table.
	PeakAttribute = "MS:1003254|peak attribute"

	ChargeState = "MS:1000041|charge state"
	PrecursorMZ = "MS:1003208|experimental precursor monoisotopic m/z"

	LibraryName        = "MS:1003188|library name"
	LibraryIdentifier  = "MS:1003187|library identifier"
	LibraryVersion     = "MS:1003190|library version"
	LibraryDescription = "MS:1003189|library description"
	LibraryURI         = "MS:1003191|library URI"

	ClusterSize = "MS:1003320|cluster size"
)
