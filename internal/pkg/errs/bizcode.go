package errs

const (
	BizCodeInvalidParams = 1001

	BizCodeManifestNotFound  = 8001
	BizCodeManifestMalformed = 8002
	BizCodePayloadNotFound   = 8003
	BizCodeIntegrityFailure  = 8004
	BizCodeUpdateDirMissing  = 8005
	BizCodePathOutsideRoot   = 8006

	BizCodeRetriesExhausted = 9001
	BizCodeStartupFailure   = 9002
)
