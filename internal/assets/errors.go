package assets

import (
	"errors"
	"fmt"
)

var (
	ErrTruncatedHeader  = errors.New("truncated BSP header")
	ErrBadMagic         = errors.New("bad magic")
	ErrVersionMismatch  = errors.New("unsupported BSP version")
	ErrLumpOutOfBounds  = errors.New("lump out of bounds")
	ErrMisaligned       = errors.New("misaligned lump")
	ErrUnbalancedBraces = errors.New("unbalanced braces in entity text")
	ErrPartialTexture   = errors.New("partial texture record")
)

// Stage names the step of ParseBSP that failed.
type Stage string

const (
	StageOpen      Stage = "open"
	StageHeader    Stage = "header"
	StageDirectory Stage = "directory"
	StageEntities  Stage = "entities"
	StageTextures  Stage = "textures"
	StageCounts    Stage = "counts"
)

// NoLump is the Lump value of a ParseError not tied to a lump.
const NoLump Lump = -1

// ParseError is the single error returned by a failed ParseBSP call. It
// names the file, the stage, and the lump when one applies.
type ParseError struct {
	Path  string
	Stage Stage
	Lump  Lump
	Err   error
}

func (e *ParseError) Error() string {
	if e.Lump == NoLump {
		return fmt.Sprintf("parse %s: %s: %v", e.Path, e.Stage, e.Err)
	}
	return fmt.Sprintf("parse %s: %s (lump %d %s): %v", e.Path, e.Stage, int(e.Lump), e.Lump, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TruncatedHeaderError reports a file too short to hold the lump directory.
type TruncatedHeaderError struct {
	Size int64
	Need int64
}

func (e *TruncatedHeaderError) Error() string {
	return fmt.Sprintf("BSP too small: %d bytes, header needs %d", e.Size, e.Need)
}

func (e *TruncatedHeaderError) Is(target error) bool { return target == ErrTruncatedHeader }

// BadMagicError carries the observed and expected signature bytes.
type BadMagicError struct {
	Got  []byte
	Want []byte
}

func (e *BadMagicError) Error() string {
	return fmt.Sprintf("invalid magic: got %q, want %q", e.Got, e.Want)
}

func (e *BadMagicError) Is(target error) bool { return target == ErrBadMagic }

// VersionMismatchError reports a BSP version other than 46. Some Q3-derived
// engines change the number but keep the layout, so it is a warning unless
// strict parsing is requested.
type VersionMismatchError struct {
	Got  uint32
	Want uint32
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("unsupported BSP version: %d (want %d)", e.Got, e.Want)
}

func (e *VersionMismatchError) Is(target error) bool { return target == ErrVersionMismatch }

// LumpOutOfBoundsError reports a directory entry pointing past end of file.
type LumpOutOfBoundsError struct {
	Lump     Lump
	Entry    LumpEntry
	FileSize int64
}

func (e *LumpOutOfBoundsError) Error() string {
	return fmt.Sprintf("lump %d (%s) ends at %d, past end of file (%d bytes)",
		int(e.Lump), e.Lump, e.Entry.End(), e.FileSize)
}

func (e *LumpOutOfBoundsError) Is(target error) bool { return target == ErrLumpOutOfBounds }

// MisalignedLumpError reports a lump whose length is not a multiple of its
// record size.
type MisalignedLumpError struct {
	Lump   Lump
	Length uint32
	Stride int
}

func (e *MisalignedLumpError) Error() string {
	return fmt.Sprintf("lump %d (%s) length %d is not a multiple of %d",
		int(e.Lump), e.Lump, e.Length, e.Stride)
}

func (e *MisalignedLumpError) Is(target error) bool { return target == ErrMisaligned }

// UnbalancedBracesError reports malformed entity text at a byte offset.
type UnbalancedBracesError struct {
	Offset int
	Reason string
}

func (e *UnbalancedBracesError) Error() string {
	return fmt.Sprintf("entity text offset %d: %s", e.Offset, e.Reason)
}

func (e *UnbalancedBracesError) Is(target error) bool { return target == ErrUnbalancedBraces }

// PartialTextureRecordWarning reports trailing bytes in the texture lump
// that do not fill a whole record. Decoding continues with the floored count.
type PartialTextureRecordWarning struct {
	Length    uint32
	Remainder int
}

func (e *PartialTextureRecordWarning) Error() string {
	return fmt.Sprintf("texture lump length %d leaves %d trailing bytes", e.Length, e.Remainder)
}

func (e *PartialTextureRecordWarning) Is(target error) bool { return target == ErrPartialTexture }
