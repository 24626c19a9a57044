package pascal

// UserRec is one fixed-size entry in the legacy user list, record N living
// at offset N*sizeof(record) as described by the on-disk file layout. It
// is the interoperability twin of the live account record the auth
// service manages; the new system treats UserRec.Password as inert
// legacy data and authenticates through its own Argon2id hashes instead.
type UserRec struct {
	Handle       string
	RealName     string
	Password     string // legacy hash reference; not used by the new hasher
	City         string
	LastOn       DateTime
	TimesOn      uint16
	SecurityLvl  uint16
	Security     Flags // 32 bytes = 256 bits, one bit per security flag
	BoardNewscan Flags // 32 bytes, one bit per board (up to 254 used)
	FileNewscan  Flags // 32 bytes, one bit per file area
	UserNum      uint16
	Reserved     []byte // 8 reserved bytes, preserved verbatim
}

// Fields drives UserRec's encode/decode from one ordered list.
func (u *UserRec) Fields(io *IO) {
	io.ShortString(&u.Handle, 36)
	io.ShortString(&u.RealName, 36)
	io.ShortString(&u.Password, 20)
	io.ShortString(&u.City, 30)
	io.DateTime(&u.LastOn)
	io.U16(&u.TimesOn)
	io.U16(&u.SecurityLvl)
	io.Flags(&u.Security, 32)
	io.Flags(&u.BoardNewscan, 32)
	io.Flags(&u.FileNewscan, 32)
	io.U16(&u.UserNum)
	io.Bytes(&u.Reserved, 8)
}

// HasSecurityFlag reports whether security bit i (0-based) is set.
func (u *UserRec) HasSecurityFlag(i int) bool { return u.Security.Test(i) }

// WantsBoardNewscan reports whether board i (0-based, up to 254) is
// included in this user's new-message scan.
func (u *UserRec) WantsBoardNewscan(i int) bool { return u.BoardNewscan.Test(i) }
