package fusekernel

// InitFlags is the bitmask of capabilities exchanged during the INIT
// handshake: the kernel advertises what it supports, and the library
// replies with the subset it intends to use.
type InitFlags uint32

const (
	InitAsyncRead       InitFlags = 1 << 0
	InitPosixLocks      InitFlags = 1 << 1
	InitFileOps         InitFlags = 1 << 2
	InitAtomicOTrunc    InitFlags = 1 << 3
	InitExportSupport   InitFlags = 1 << 4
	InitBigWrites       InitFlags = 1 << 5
	InitDontMask        InitFlags = 1 << 6
	InitSpliceWrite     InitFlags = 1 << 7
	InitSpliceMove      InitFlags = 1 << 8
	InitSpliceRead      InitFlags = 1 << 9
	InitFlockLocks      InitFlags = 1 << 10
	InitHasIoctlDir     InitFlags = 1 << 11
	InitAutoInvalData   InitFlags = 1 << 12
	InitDoReaddirplus   InitFlags = 1 << 13
	InitReaddirplusAuto InitFlags = 1 << 14
	InitAsyncDIO        InitFlags = 1 << 15
	InitWritebackCache  InitFlags = 1 << 16
	InitNoOpenSupport   InitFlags = 1 << 17
	InitParallelDirOps  InitFlags = 1 << 18
	InitHandleKillpriv  InitFlags = 1 << 19
	InitPosixACL        InitFlags = 1 << 20
	InitAbortError      InitFlags = 1 << 21
	InitMaxPages        InitFlags = 1 << 22
	InitCacheSymlinks   InitFlags = 1 << 23
	InitNoOpendirSupport InitFlags = 1 << 24
	InitExplicitInvalData InitFlags = 1 << 25

	// macFUSE extensions, only ever set by a Darwin kernel.
	InitCaseInsensitive InitFlags = 1 << 29
	InitVolRename       InitFlags = 1 << 30
	InitXtimes          InitFlags = 1 << 31
)

// linuxSupportedFlags is the subset of kernel-advertised flags the library
// negotiates on when running under a Linux kernel driver.
const linuxSupportedFlags = InitAsyncRead |
	InitBigWrites |
	InitMaxPages |
	InitWritebackCache |
	InitNoOpenSupport |
	InitNoOpendirSupport |
	InitParallelDirOps |
	InitAtomicOTrunc |
	InitDoReaddirplus |
	InitReaddirplusAuto

// darwinSupportedFlags additionally negotiates on the macFUSE case
// sensitivity, volume rename, and extended-times extensions.
const darwinSupportedFlags = linuxSupportedFlags |
	InitCaseInsensitive |
	InitVolRename |
	InitXtimes

// SupportedFlags returns the flags this library is willing to negotiate on
// for the given GOOS ("linux" or "darwin"). Any other platform gets the
// conservative Linux set.
func SupportedFlags(goos string) InitFlags {
	if goos == "darwin" {
		return darwinSupportedFlags
	}
	return linuxSupportedFlags
}
