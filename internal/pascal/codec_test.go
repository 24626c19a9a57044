package pascal

import "testing"

// Scenario: Pascal round-trip. Mirrors the literal UlFRec from the
// end-to-end test scenario: encode then decode must reproduce every field.
func TestUlFRecRoundTrip(t *testing.T) {
	fs := NewFlags(1)
	fs.Set(FileStatusNotValidated, true)

	rec := &UlFRec{
		Filename:    "FOO.ZIP",
		Description: "An archive",
		FilePoints:  10,
		NAcc:        5,
		Blocks:      8,
		Owner:       42,
		StOwner:     "BOB",
		Date:        "01/15/25",
		DateN:       9146,
		VPointer:    -1,
		FileStat:    fs,
		Priv:        false,
		PrivFor:     "",
	}

	data := Encode(rec)

	got := &UlFRec{}
	if err := Decode(data, got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.Filename != rec.Filename {
		t.Errorf("Filename = %q, want %q", got.Filename, rec.Filename)
	}
	if got.Description != rec.Description {
		t.Errorf("Description = %q, want %q", got.Description, rec.Description)
	}
	if got.FilePoints != rec.FilePoints {
		t.Errorf("FilePoints = %d, want %d", got.FilePoints, rec.FilePoints)
	}
	if got.NAcc != rec.NAcc {
		t.Errorf("NAcc = %d, want %d", got.NAcc, rec.NAcc)
	}
	if got.Blocks != rec.Blocks {
		t.Errorf("Blocks = %d, want %d", got.Blocks, rec.Blocks)
	}
	if got.Owner != rec.Owner {
		t.Errorf("Owner = %d, want %d", got.Owner, rec.Owner)
	}
	if got.StOwner != rec.StOwner {
		t.Errorf("StOwner = %q, want %q", got.StOwner, rec.StOwner)
	}
	if got.Date != rec.Date {
		t.Errorf("Date = %q, want %q", got.Date, rec.Date)
	}
	if got.DateN != rec.DateN {
		t.Errorf("DateN = %d, want %d", got.DateN, rec.DateN)
	}
	if got.VPointer != rec.VPointer {
		t.Errorf("VPointer = %d, want %d", got.VPointer, rec.VPointer)
	}
	if !got.FileStat.Test(FileStatusNotValidated) {
		t.Errorf("FileStat missing NotValidated bit")
	}
	if got.Priv != rec.Priv {
		t.Errorf("Priv = %v, want %v", got.Priv, rec.Priv)
	}
	if got.PrivFor != rec.PrivFor {
		t.Errorf("PrivFor = %q, want %q", got.PrivFor, rec.PrivFor)
	}

	// encode(decode(bytes)) == bytes
	again := Encode(got)
	if string(again) != string(data) {
		t.Errorf("re-encode mismatch: got %d bytes, want %d bytes", len(again), len(data))
	}
}

func TestUlRecRoundTrip(t *testing.T) {
	rec := &UlRec{
		Name:      "General Files",
		Filename:  "GENERAL",
		DLPath:    "/bbs/files/general",
		ULPath:    "/bbs/uploads/general",
		MaxFiles:  500,
		Password:  "",
		ArcType:   1,
		CmtType:   0,
		FBDepth:   3,
		FBStat:    NewFlags(1),
		ACS:       "s10",
		ULAcs:     "s20",
		NameAcs:   "",
		PermIndex: 7,
		Conf:      1,
		Reserved:  []byte{0, 0, 0, 0, 0},
	}
	data := Encode(rec)
	got := &UlRec{}
	if err := Decode(data, got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != rec.Name || got.DLPath != rec.DLPath || got.MaxFiles != rec.MaxFiles {
		t.Errorf("round-trip mismatch: %+v", got)
	}
}

func TestShortStringTruncatesOnEncode(t *testing.T) {
	s := &struct{ v string }{v: "this is way too long for an eight byte field"}
	data := encodeShortString(s.v, 8)
	if len(data) != 9 {
		t.Fatalf("len(data) = %d, want 9", len(data))
	}
	if data[0] != 8 {
		t.Errorf("length byte = %d, want 8", data[0])
	}
	got := decodeShortString(data, 8)
	if got != "this is " {
		t.Errorf("got %q", got)
	}
}

func TestDecodeShortInputFails(t *testing.T) {
	rec := &UlFRec{}
	err := Decode([]byte{1, 2, 3}, rec)
	if err == nil {
		t.Fatal("expected InvalidLayoutError on short input")
	}
	if _, ok := err.(*InvalidLayoutError); !ok {
		t.Errorf("got %T, want *InvalidLayoutError", err)
	}
}

func TestMsgIndexRecRoundTrip(t *testing.T) {
	status := NewFlags(1)
	status.Set(0, true)
	rec := &MsgIndexRec{
		MsgNum:     12,
		HdrOffset:  4096,
		UniqueID:   99001,
		ReplyToID:  0,
		Written:    DateTime{YearOffset: 125, Month: 7, Day: 31, Hour: 10, Minute: 0, Second: 0},
		DayOfWeek:  5,
		Status:     status,
		ReplyTo:    ReplyToNone,
		ReplyCount: 2,
	}
	data := Encode(rec)
	got := &MsgIndexRec{}
	if err := Decode(data, got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.MsgNum != rec.MsgNum || got.UniqueID != rec.UniqueID || got.ReplyTo != ReplyToNone {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if got.IsReply() {
		t.Errorf("IsReply() = true, want false for sentinel ReplyTo")
	}
}

func TestMHeaderRecSignature(t *testing.T) {
	rec := &MHeaderRec{
		Signature:  HeaderSignature,
		TextOffset: 1000,
		TextLen:    200,
		Title:      "Re: hello",
	}
	data := Encode(rec)
	got := &MHeaderRec{}
	if err := Decode(data, got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.HasValidSignature() {
		t.Errorf("HasValidSignature() = false")
	}
	if got.Title != rec.Title {
		t.Errorf("Title = %q, want %q", got.Title, rec.Title)
	}
}
