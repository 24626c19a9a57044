package pascal

// File-catalog bit positions within UlFRec.FileStat.
const (
	FileStatusNotValidated = 0 // not yet approved by a sysop/validator
	FileStatusIsRequest    = 1 // entry is a file-request placeholder, not a real file
	FileStatusResumeLater  = 2 // upload is incomplete; resume is expected
)

// UlRec describes one file area: its name, storage paths, and the access
// strings that gate browsing, uploading, and listing within it. One record
// per area in the area catalog file.
type UlRec struct {
	Name      string
	Filename  string // base name of this area's .DIR file
	DLPath    string
	ULPath    string
	MaxFiles  int16
	Password  string
	ArcType   uint8
	CmtType   uint8
	FBDepth   int16
	FBStat    Flags // 1 byte
	ACS       string
	ULAcs     string
	NameAcs   string
	PermIndex int32
	Conf      uint8
	Reserved  []byte // 5 reserved bytes, preserved verbatim
}

// Fields drives UlRec's encode/decode from one ordered list.
func (r *UlRec) Fields(io *IO) {
	io.ShortString(&r.Name, 40)
	io.ShortString(&r.Filename, 12)
	io.ShortString(&r.DLPath, 40)
	io.ShortString(&r.ULPath, 40)
	io.I16(&r.MaxFiles)
	io.ShortString(&r.Password, 20)
	io.U8(&r.ArcType)
	io.U8(&r.CmtType)
	io.I16(&r.FBDepth)
	io.Flags(&r.FBStat, 1)
	io.ShortString(&r.ACS, 20)
	io.ShortString(&r.ULAcs, 20)
	io.ShortString(&r.NameAcs, 20)
	io.I32(&r.PermIndex)
	io.U8(&r.Conf)
	io.Bytes(&r.Reserved, 5)
}

// UlFRec describes one uploaded file: its name, description, size in
// 128-byte blocks, uploader, and status flags. One record per file in an
// area's .DIR file.
type UlFRec struct {
	Filename    string
	Description string
	FilePoints  int16
	NAcc        int16 // download count
	FT          uint8
	Blocks      int16 // size in 128-byte blocks
	Owner       int16 // uploader's user number
	StOwner     string
	Date        string // display date, e.g. "01/15/25"
	DateN       int16  // numeric date, days since a fixed epoch
	VPointer    int32  // offset into the verbose-description file; -1 = none
	FileStat    Flags  // 1 byte, see FileStatus* bit constants
	Priv        bool
	PrivFor     string
}

// NewUlFRec returns a zero-value record with the defaults the legacy
// program assigns to a fresh entry: VPointer absent and NOT_VALIDATED set.
func NewUlFRec() *UlFRec {
	fs := NewFlags(1)
	fs.Set(FileStatusNotValidated, true)
	return &UlFRec{VPointer: -1, FileStat: fs}
}

// Fields drives UlFRec's encode/decode from one ordered list.
func (r *UlFRec) Fields(io *IO) {
	io.ShortString(&r.Filename, 12)
	io.ShortString(&r.Description, 60)
	io.I16(&r.FilePoints)
	io.I16(&r.NAcc)
	io.U8(&r.FT)
	io.I16(&r.Blocks)
	io.I16(&r.Owner)
	io.ShortString(&r.StOwner, 36)
	io.ShortString(&r.Date, 8)
	io.I16(&r.DateN)
	io.I32(&r.VPointer)
	io.Flags(&r.FileStat, 1)
	io.Bool(&r.Priv)
	io.ShortString(&r.PrivFor, 8)
}

// FileSizeBytes returns the file's size in bytes, derived from its
// 128-byte block count.
func (r *UlFRec) FileSizeBytes() int64 { return int64(r.Blocks) * 128 }

// FileSizeKB returns the file's size in kilobytes, rounded down.
func (r *UlFRec) FileSizeKB() int64 { return r.FileSizeBytes() / 1024 }

// HasVerbose reports whether VPointer refers to a verbose-description
// entry rather than the "absent" sentinel.
func (r *UlFRec) HasVerbose() bool { return r.VPointer != -1 }

// VerbRec holds the twenty short-string lines of a file's verbose
// description, stored in the verbose-description file at the offset
// given by a UlFRec's VPointer.
type VerbRec struct {
	Lines [20]string
}

// Fields drives VerbRec's encode/decode from one ordered list.
func (r *VerbRec) Fields(io *IO) {
	for i := range r.Lines {
		io.ShortString(&r.Lines[i], 50)
	}
}
