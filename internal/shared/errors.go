package shared

type Error string

// Implement the error interface
func (e Error) Error() string { return string(e) }

//------------
// Definitions
//------------

// cli errors
const (
	ErrorCreateFile = Error("could not create the file")
	ErrorEncodeFile = Error("could not encode to file")
)

// repository errors
const (
	ErrMissingCredentials      = Error("remote backend selected but credentials are missing")
	ErrPartiallyApplied        = Error("statement sequence partially applied")
	ErrTransactionsUnsupported = Error("backend does not support transactions")
	ErrInvalidName             = Error("invalid name")
)

// schema errors
const (
	ErrScriptNotFound = Error("schema script not found")
	ErrInitialSchema  = Error("initial schema could not be created")
)

// seed errors
const ErrUnresolved = Error("record could not be resolved by natural key")
