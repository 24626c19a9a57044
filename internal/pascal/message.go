package pascal

// HeaderSignature marks the start of an MHeaderRec and is used as a sync
// marker when scanning the header file for corruption.
const HeaderSignature uint32 = 0xFFFFFFFF

// ReplyToNone is the sentinel ReplyTo value meaning "not a reply".
const ReplyToNone uint16 = 0xFFFF

// Board types for BoardRec.Type.
const (
	BoardTypeLocal = iota
	BoardTypeEcho
	BoardTypeNetmail
)

// MsgIndexRec is one fixed-size entry in a board's message index file,
// one per message, in message-number order.
type MsgIndexRec struct {
	MsgNum     uint32
	HdrOffset  uint32 // byte offset of the MHeaderRec in the header file
	UniqueID   uint32 // globally unique sequential message id
	ReplyToID  uint32 // UniqueID of the message this replies to; 0 = none
	Written    DateTime
	DayOfWeek  uint8
	Status     Flags // 1 byte
	ReplyTo    uint16 // message number replied to; ReplyToNone = not a reply
	ReplyCount uint16
}

// Fields drives MsgIndexRec's encode/decode from one ordered list.
func (r *MsgIndexRec) Fields(io *IO) {
	io.U32(&r.MsgNum)
	io.U32(&r.HdrOffset)
	io.U32(&r.UniqueID)
	io.U32(&r.ReplyToID)
	io.DateTime(&r.Written)
	io.U8(&r.DayOfWeek)
	io.Flags(&r.Status, 1)
	io.U16(&r.ReplyTo)
	io.U16(&r.ReplyCount)
}

// IsReply reports whether this message replies to another.
func (r *MsgIndexRec) IsReply() bool { return r.ReplyTo != ReplyToNone }

// FromToInfo names the writer and recipient of a message, including the
// legacy "as written" display name (which may differ from the account's
// real name under an anonymity policy).
type FromToInfo struct {
	AnonType  uint8
	UserNum   uint16
	AsWritten string
	RealName  string
	Alias     string
}

// Fields drives FromToInfo's encode/decode from one ordered list.
func (f *FromToInfo) Fields(io *IO) {
	io.U8(&f.AnonType)
	io.U16(&f.UserNum)
	io.ShortString(&f.AsWritten, 36)
	io.ShortString(&f.RealName, 36)
	io.ShortString(&f.Alias, 36)
}

// MHeaderRec is the variable-location header record for one message, as
// found at the offset given by the corresponding MsgIndexRec.HdrOffset.
type MHeaderRec struct {
	Signature  uint32 // always HeaderSignature; used as a sync marker
	TextOffset uint32 // byte offset of the message text
	TextLen    uint32
	From       FromToInfo
	To         FromToInfo
	Title      string
	Origin     DateTime
}

// Fields drives MHeaderRec's encode/decode from one ordered list.
func (r *MHeaderRec) Fields(io *IO) {
	io.U32(&r.Signature)
	io.U32(&r.TextOffset)
	io.U32(&r.TextLen)
	r.From.Fields(io)
	r.To.Fields(io)
	io.ShortString(&r.Title, 72)
	io.DateTime(&r.Origin)
}

// HasValidSignature reports whether Signature matches HeaderSignature,
// the check used when scanning the header file for a sync point.
func (r *MHeaderRec) HasValidSignature() bool { return r.Signature == HeaderSignature }

// BoardRec describes one message board: its display name, storage, access
// requirements, and network routing identity for echo/netmail boards.
type BoardRec struct {
	Name        string
	BaseName    string // base filename for this board's index/header/text files
	LastID      uint32
	Path        string
	ReadACS     string
	WriteACS    string
	SysopACS    string
	MaxMessages uint16
	AnonPolicy  uint8
	Password    string
	Status      Flags // 1 byte
	PermIndex   uint16
	Type        uint8 // BoardTypeLocal / BoardTypeEcho / BoardTypeNetmail
	FidoZone    uint16
	FidoNet     uint16
	FidoNode    uint16
	FidoPoint   uint16
	ColorAttr   uint8
}

// Fields drives BoardRec's encode/decode from one ordered list.
func (r *BoardRec) Fields(io *IO) {
	io.ShortString(&r.Name, 40)
	io.ShortString(&r.BaseName, 8)
	io.U32(&r.LastID)
	io.ShortString(&r.Path, 40)
	io.ShortString(&r.ReadACS, 20)
	io.ShortString(&r.WriteACS, 20)
	io.ShortString(&r.SysopACS, 20)
	io.U16(&r.MaxMessages)
	io.U8(&r.AnonPolicy)
	io.ShortString(&r.Password, 20)
	io.Flags(&r.Status, 1)
	io.U16(&r.PermIndex)
	io.U8(&r.Type)
	io.U16(&r.FidoZone)
	io.U16(&r.FidoNet)
	io.U16(&r.FidoNode)
	io.U16(&r.FidoPoint)
	io.U8(&r.ColorAttr)
}
