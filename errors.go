package bridge

// ErrorCode is a stable, implementation-independent error identifier, in the
// style of the pack's UsbErrCode: a small enum with a lookup table rather
// than ad-hoc string errors, so callers can switch on the cause.
type ErrorCode int

const (
	ErrOK ErrorCode = iota
	ErrGeneric
	ErrLibusbInitFailed
	ErrCantOpenDev
	ErrCantSetUSBConfig
	ErrCantClaimIF
	ErrCantSetAltSetting
	ErrCantClearEP
	ErrCantPrepareTransfer
	ErrCantFindDev

	ErrNoReadSpace
	ErrNoWriteSpace
	ErrNoRead
	ErrNoWrite
	ErrNoP2OAudioBuf
	ErrNoO2PAudioBuf
	ErrNoP2OMIDIBuf
	ErrNoO2PMIDIBuf
	ErrNoGetTime
	ErrNoDLL
)

var errorCodeStrings = map[ErrorCode]string{
	ErrOK:                  "ok",
	ErrGeneric:             "generic error",
	ErrLibusbInitFailed:    "libusb initialization failed",
	ErrCantOpenDev:         "cannot open device",
	ErrCantSetUSBConfig:    "cannot set USB configuration",
	ErrCantClaimIF:         "cannot claim interface",
	ErrCantSetAltSetting:   "cannot set alternate setting",
	ErrCantClearEP:         "cannot clear endpoint halt",
	ErrCantPrepareTransfer: "cannot prepare transfer",
	ErrCantFindDev:         "cannot find device",

	ErrNoReadSpace:   "host context missing read_space",
	ErrNoWriteSpace:  "host context missing write_space",
	ErrNoRead:        "host context missing read",
	ErrNoWrite:       "host context missing write",
	ErrNoP2OAudioBuf: "host context missing p2o audio ring",
	ErrNoO2PAudioBuf: "host context missing o2p audio ring",
	ErrNoP2OMIDIBuf:  "host context missing p2o midi ring",
	ErrNoO2PMIDIBuf:  "host context missing o2p midi ring",
	ErrNoGetTime:     "host context missing get_time",
	ErrNoDLL:         "host context missing dll",
}

// String returns the fixed human-readable phrase for code.
func (code ErrorCode) String() string {
	if s, ok := errorCodeStrings[code]; ok {
		return s
	}
	return "unknown error"
}

// EngineError wraps an ErrorCode with the operation that produced it.
type EngineError struct {
	Op   string
	Code ErrorCode
}

func (e EngineError) Error() string { return e.Op + ": " + e.Code.String() }

func newErr(op string, code ErrorCode) error { return EngineError{Op: op, Code: code} }
