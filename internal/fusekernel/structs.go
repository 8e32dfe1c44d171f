package fusekernel

import "unsafe"

// InHeader is the fixed 40-byte header prefixing every request the kernel
// sends. Its layout is part of the wire protocol and must not change.
type InHeader struct {
	Len     uint32
	Opcode  Opcode
	Unique  uint64
	Nodeid  uint64
	Uid     uint32
	Gid     uint32
	Pid     uint32
	Padding uint32
}

// OutHeader is the fixed 16-byte header prefixing every reply.
type OutHeader struct {
	Len    uint32
	Error  int32
	Unique uint64
}

// Attr mirrors the kernel's struct fuse_attr: the attributes of a single
// inode, as reported to the kernel's inode cache.
type Attr struct {
	Ino       uint64
	Size      uint64
	Blocks    uint64
	Atime     uint64
	Mtime     uint64
	Ctime     uint64
	Atimensec uint32
	Mtimensec uint32
	Ctimensec uint32
	Mode      uint32
	Nlink     uint32
	Uid       uint32
	Gid       uint32
	Rdev      uint32
	Blksize   uint32
	Padding   uint32

	// macFUSE extensions. Harmless, unused padding on non-Darwin kernels.
	Crtime     uint64
	Crtimensec uint32
	Flags      uint32
}

type EntryOut struct {
	Nodeid         uint64
	Generation     uint64
	EntryValid     uint64
	AttrValid      uint64
	EntryValidNsec uint32
	AttrValidNsec  uint32
	Attr           Attr
}

// EntryOutSize returns the wire size of an EntryOut for the given
// negotiated protocol. All currently supported versions share one layout;
// the parameter is kept so call sites do not need to change if that
// changes in the future.
func EntryOutSize(protocol Protocol) uintptr {
	return unsafe.Sizeof(EntryOut{})
}

type AttrOut struct {
	AttrValid     uint64
	AttrValidNsec uint32
	Dummy         uint32
	Attr          Attr
}

func AttrOutSize(protocol Protocol) uintptr {
	return unsafe.Sizeof(AttrOut{})
}

type InitIn struct {
	Major        uint32
	Minor        uint32
	MaxReadahead uint32
	Flags        uint32
}

type InitOut struct {
	Major               uint32
	Minor               uint32
	MaxReadahead        uint32
	Flags               uint32
	MaxBackground       uint16
	CongestionThreshold uint16
	MaxWrite            uint32
	TimeGran            uint32
	Unused              [9]uint32
}

type ForgetIn struct {
	Nlookup uint64
}

// ForgetOne is a single entry in a BATCH_FORGET request's argument list.
type ForgetOne struct {
	Nodeid  uint64
	Nlookup uint64
}

type BatchForgetIn struct {
	Count uint32
	Dummy uint32
}

type GetattrIn struct {
	GetattrFlags uint32
	Dummy        uint32
	Fh           uint64
}

const (
	FattrMode      = 1 << 0
	FattrUID       = 1 << 1
	FattrGID       = 1 << 2
	FattrSize      = 1 << 3
	FattrAtime     = 1 << 4
	FattrMtime     = 1 << 5
	FattrFh        = 1 << 6
	FattrAtimeNow  = 1 << 7
	FattrMtimeNow  = 1 << 8
	FattrLockOwner = 1 << 9

	// macFUSE-only bits, set only by a Darwin kernel.
	FattrCrtime   = 1 << 28
	FattrChgtime  = 1 << 29
	FattrBkuptime = 1 << 30
	FattrFlags    = 1 << 31
)

type SetattrIn struct {
	Valid        uint32
	Padding      uint32
	Fh           uint64
	Size         uint64
	LockOwner    uint64
	Atime        uint64
	Mtime        uint64
	Unused2      uint64
	AtimeNsec    uint32
	MtimeNsec    uint32
	Unused3      uint32
	Mode         uint32
	Unused4      uint32
	Uid          uint32
	Gid          uint32
	Unused5      uint32

	// macFUSE extensions.
	Bkuptime        uint64
	Chgtime         uint64
	Crtime          uint64
	BkuptimeNsec    uint32
	ChgtimeNsec     uint32
	CrtimeNsec      uint32
	Flags           uint32
}

type MknodIn struct {
	Mode    uint32
	Rdev    uint32
	Umask   uint32
	Padding uint32
}

type MkdirIn struct {
	Mode  uint32
	Umask uint32
}

type RenameIn struct {
	Newdir uint64
}

type LinkIn struct {
	Oldnodeid uint64
}

type OpenIn struct {
	Flags  uint32
	Unused uint32
}

type OpenOut struct {
	Fh        uint64
	OpenFlags uint32
	Padding   uint32
}

const (
	OpenKeepCache = 1 << 0
	OpenDirectIO  = 1 << 1
	OpenNonSeekable = 1 << 2
)

type ReadIn struct {
	Fh        uint64
	Offset    uint64
	Size      uint32
	ReadFlags uint32
	LockOwner uint64
	Flags     uint32
	Padding   uint32
}

type WriteIn struct {
	Fh         uint64
	Offset     uint64
	Size       uint32
	WriteFlags uint32
	LockOwner  uint64
	Flags      uint32
	Padding    uint32
}

const WriteLockOwner = 1 << 1

type WriteOut struct {
	Size    uint32
	Padding uint32
}

type StatfsOut struct {
	Blocks  uint64
	Bfree   uint64
	Bavail  uint64
	Files   uint64
	Ffree   uint64
	Bsize   uint32
	Namelen uint32
	Frsize  uint32
	Padding uint32
	Spare   [6]uint32
}

type ReleaseIn struct {
	Fh           uint64
	Flags        uint32
	ReleaseFlags uint32
	LockOwner    uint64
}

const ReleaseFlush = 1 << 0

type FsyncIn struct {
	Fh         uint64
	FsyncFlags uint32
	Padding    uint32
}

const FsyncFdatasync = 1 << 0

type SetxattrIn struct {
	Size    uint32
	Flags   uint32
	// macFUSE extension: an explicit offset for resource-fork-style xattrs.
	Position uint32
	Padding  uint32
}

type GetxattrIn struct {
	Size    uint32
	Padding uint32
	// macFUSE extension.
	Position uint32
}

type GetxattrOut struct {
	Size    uint32
	Padding uint32
}

type LkIn struct {
	Fh    uint64
	Owner uint64
	Lk    FileLock
	LkFlags uint32
	Padding uint32
}

type LkOut struct {
	Lk FileLock
}

type FileLock struct {
	Start uint64
	End   uint64
	Type  uint32
	Pid   uint32
}

const LkFlock = 1 << 0

type AccessIn struct {
	Mask    uint32
	Padding uint32
}

type CreateIn struct {
	Flags uint32
	Mode  uint32
	Umask uint32
	Padding uint32
}

type InterruptIn struct {
	Unique uint64
}

type BmapIn struct {
	Block     uint64
	Blocksize uint32
	Padding   uint32
}

type BmapOut struct {
	Block uint64
}

type IoctlIn struct {
	Fh      uint64
	Flags   uint32
	Cmd     uint32
	Arg     uint64
	InSize  uint32
	OutSize uint32
}

type IoctlOut struct {
	Result  int32
	Flags   uint32
	InIovs  uint32
	OutIovs uint32
}

type PollIn struct {
	Fh     uint64
	Kh     uint64
	Flags  uint32
	Events uint32
}

type PollOut struct {
	Revents uint32
	Padding uint32
}

type FallocateIn struct {
	Fh      uint64
	Offset  uint64
	Length  uint64
	Mode    uint32
	Padding uint32
}

// ExchangeIn is the macFUSE-only EXCHANGE opcode's argument.
type ExchangeIn struct {
	Olddir  uint64
	Newdir  uint64
	Options uint64
}
