// Package dropfile writes the DOOR.SYS dropfile that external door
// programs read to learn about the calling session: a fixed 52-line,
// one-field-per-line text file.
package dropfile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Info carries the per-session fields DOOR.SYS reports to a door
// program, in DOOR.SYS's own field order. Fields with no natural
// BBS-side equivalent (legacy phone numbers, password echo, disk paths
// a modern server doesn't keep) are included for format fidelity and
// left empty or zeroed when the caller has nothing to put there.
type Info struct {
	CommPort       string // line 1: "COM1:", or "COM0:" for a non-serial (SSH/telnet) connection
	BaudRate       int    // line 2
	Parity         int    // line 3: 7 or 8
	NodeNumber     int    // line 4
	DTRDropTime    int    // line 5: seconds, 0 disables
	ScreenDisplay  bool   // line 6
	PrinterToggle  bool   // line 7
	PageBell       bool   // line 8
	CallerAlarm    bool   // line 9
	RealName       string // line 10
	Location       string // line 11: "City, ST"
	HomePhone      string // line 12
	WorkPhone      string // line 13
	Password       string // line 14: plaintext, as the legacy format requires; never the Argon2id hash
	SecurityLevel  int    // line 15
	TotalTimesOn   int    // line 16
	LastCallDate   time.Time
	SecondsRemain  int    // line 18
	MinutesRemain  int    // line 19
	GraphicsMode   string // line 20: "GR" (ANSI), "NG" (no graphics), "7E" (7-bit)
	PageLength     int    // line 21
	ExpertMode     bool   // line 22
	Conferences    string // line 23
	CurrentConf    int    // line 24
	ExpirationDate time.Time
	UserRecordNum  int    // line 26
	DefaultProto   string // line 27: single-letter protocol selector, e.g. "Z" for Zmodem
	TotalUploads   int    // line 28
	TotalDownloads int    // line 29
	DailyDownKB    int    // line 30
	DailyDownedKB  int    // line 31
	BirthDate      time.Time
	UserDirectory  string // line 33
	BBSDirectory   string // line 34
	IsSysop        bool   // line 35
	IsCoSysop      bool   // line 36
	AnsiEnabled    bool   // line 37
	UseFullEditor  bool   // line 38
	ScreenClearing bool   // line 39
	MailWaiting    bool   // line 40
	ConferenceName string // line 41
	ScreenWidth    int    // line 42
	BBSSoftware    string // line 43
	Alias          string // line 44
	LoginTime      string // line 45: "HH:MM"
	TimeLimit      int    // line 46: minutes
	UploadKBLimit  int    // line 47
	DownloadKBLim  int    // line 48
	ULDLRatio      string // line 49
	UploadKBTotal  int64  // line 50
	DownloadKBTtl  int64  // line 51
	Comment        string // line 52
}

func yesNo(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}

func mmddyy(t time.Time) string {
	if t.IsZero() {
		return "01/01/80"
	}
	return t.Format("01/02/06")
}

// Write emits the 52-line DOOR.SYS for info to w, in the order the
// DOOR.SYS format defines it. The field order is fixed; callers must
// not reorder it without also updating whatever door programs read the
// output.
func Write(w io.Writer, info Info) error {
	bw := bufio.NewWriter(w)

	lines := [53]string{} // index 0 unused; lines live at 1..52
	lines[1] = info.CommPort
	lines[2] = strconv.Itoa(info.BaudRate)
	lines[3] = strconv.Itoa(info.Parity)
	lines[4] = strconv.Itoa(info.NodeNumber)
	lines[5] = strconv.Itoa(info.DTRDropTime)
	lines[6] = yesNo(info.ScreenDisplay)
	lines[7] = yesNo(info.PrinterToggle)
	lines[8] = yesNo(info.PageBell)
	lines[9] = yesNo(info.CallerAlarm)
	lines[10] = info.RealName
	lines[11] = info.Location
	lines[12] = info.HomePhone
	lines[13] = info.WorkPhone
	lines[14] = info.Password
	lines[15] = strconv.Itoa(info.SecurityLevel)
	lines[16] = strconv.Itoa(info.TotalTimesOn)
	lines[17] = mmddyy(info.LastCallDate)
	lines[18] = strconv.Itoa(info.SecondsRemain)
	lines[19] = strconv.Itoa(info.MinutesRemain)
	lines[20] = info.GraphicsMode
	lines[21] = strconv.Itoa(info.PageLength)
	lines[22] = yesNo(info.ExpertMode)
	lines[23] = info.Conferences
	lines[24] = strconv.Itoa(info.CurrentConf)
	lines[25] = mmddyy(info.ExpirationDate)
	lines[26] = strconv.Itoa(info.UserRecordNum)
	lines[27] = info.DefaultProto
	lines[28] = strconv.Itoa(info.TotalUploads)
	lines[29] = strconv.Itoa(info.TotalDownloads)
	lines[30] = strconv.Itoa(info.DailyDownKB)
	lines[31] = strconv.Itoa(info.DailyDownedKB)
	lines[32] = mmddyy(info.BirthDate)
	lines[33] = info.UserDirectory
	lines[34] = info.BBSDirectory
	lines[35] = yesNo(info.IsSysop)
	lines[36] = yesNo(info.IsCoSysop)
	lines[37] = yesNo(info.AnsiEnabled)
	lines[38] = yesNo(info.UseFullEditor)
	lines[39] = yesNo(info.ScreenClearing)
	lines[40] = yesNo(info.MailWaiting)
	lines[41] = info.ConferenceName
	lines[42] = strconv.Itoa(info.ScreenWidth)
	lines[43] = info.BBSSoftware
	lines[44] = info.Alias
	lines[45] = info.LoginTime
	lines[46] = strconv.Itoa(info.TimeLimit)
	lines[47] = strconv.Itoa(info.UploadKBLimit)
	lines[48] = strconv.Itoa(info.DownloadKBLim)
	lines[49] = info.ULDLRatio
	lines[50] = strconv.FormatInt(info.UploadKBTotal, 10)
	lines[51] = strconv.FormatInt(info.DownloadKBTtl, 10)
	lines[52] = info.Comment

	for i := 1; i <= 52; i++ {
		if _, err := fmt.Fprintf(bw, "%s\r\n", lines[i]); err != nil {
			return err
		}
	}
	return bw.Flush()
}
