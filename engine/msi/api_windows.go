//go:build windows

package msi

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/justapithecus/msival/engine"
	"github.com/justapithecus/msival/types"
)

var (
	modmsi = windows.NewLazySystemDLL("msi.dll")

	procMsiOpenDatabaseW              = modmsi.NewProc("MsiOpenDatabaseW")
	procMsiDatabaseMergeW             = modmsi.NewProc("MsiDatabaseMergeW")
	procMsiDatabaseApplyTransformW    = modmsi.NewProc("MsiDatabaseApplyTransformW")
	procMsiDatabaseIsTablePersistentW = modmsi.NewProc("MsiDatabaseIsTablePersistentW")
	procMsiDatabaseOpenViewW          = modmsi.NewProc("MsiDatabaseOpenViewW")
	procMsiDatabaseCommit             = modmsi.NewProc("MsiDatabaseCommit")
	procMsiViewExecute                = modmsi.NewProc("MsiViewExecute")
	procMsiViewFetch                  = modmsi.NewProc("MsiViewFetch")
	procMsiCreateRecord               = modmsi.NewProc("MsiCreateRecord")
	procMsiRecordSetStringW           = modmsi.NewProc("MsiRecordSetStringW")
	procMsiRecordSetInteger           = modmsi.NewProc("MsiRecordSetInteger")
	procMsiRecordGetStringW           = modmsi.NewProc("MsiRecordGetStringW")
	procMsiRecordGetInteger           = modmsi.NewProc("MsiRecordGetInteger")
	procMsiRecordGetFieldCount        = modmsi.NewProc("MsiRecordGetFieldCount")
	procMsiRecordIsNull               = modmsi.NewProc("MsiRecordIsNull")
	procMsiFormatRecordW              = modmsi.NewProc("MsiFormatRecordW")
	procMsiGetLastErrorRecord         = modmsi.NewProc("MsiGetLastErrorRecord")
	procMsiOpenPackageExW             = modmsi.NewProc("MsiOpenPackageExW")
	procMsiDoActionW                  = modmsi.NewProc("MsiDoActionW")
	procMsiSetInternalUI              = modmsi.NewProc("MsiSetInternalUI")
	procMsiSetExternalUIRecord        = modmsi.NewProc("MsiSetExternalUIRecord")
	procMsiCloseHandle                = modmsi.NewProc("MsiCloseHandle")
)

// Win32 return codes used by the installer API.
const (
	errSuccess       = 0
	errMoreData      = 234
	errNoMoreItems   = 259
	errFunctionFail  = 1627
	msiNullInteger   = -1 << 31
	openPackageFlags = 1 // MSIOPENPACKAGEFLAGS_IGNOREMACHINESTATE
)

// MSICONDITION values returned by MsiDatabaseIsTablePersistent.
const conditionTrue = 1

type handle uintptr

func closeHandle(h handle) {
	if h != 0 {
		_, _, _ = procMsiCloseHandle.Call(uintptr(h))
	}
}

func utf16(s string) (uintptr, error) {
	p, err := windows.UTF16PtrFromString(s)
	if err != nil {
		return 0, err
	}
	return uintptr(unsafe.Pointer(p)), nil
}

// check converts a Win32 return code into an engine.Error carrying the
// engine's last error record, if any.
func check(op string, rc uintptr) error {
	if rc == errSuccess {
		return nil
	}
	return &engine.Error{Op: op, Code: int(rc), Record: lastErrorRecord()}
}

func lastErrorRecord() *types.Record {
	r, _, _ := procMsiGetLastErrorRecord.Call()
	if r == 0 {
		return nil
	}
	h := handle(r)
	defer closeHandle(h)
	return readRecord(h)
}

// recordString reads field i of a native record.
func recordString(h handle, i int) string {
	var n uint32
	empty := [1]uint16{}
	rc, _, _ := procMsiRecordGetStringW.Call(uintptr(h), uintptr(i), uintptr(unsafe.Pointer(&empty[0])), uintptr(unsafe.Pointer(&n)))
	if rc != errMoreData && rc != errSuccess {
		return ""
	}
	if n == 0 {
		return ""
	}
	n++
	buf := make([]uint16, n)
	rc, _, _ = procMsiRecordGetStringW.Call(uintptr(h), uintptr(i), uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&n)))
	if rc != errSuccess {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

// readRecord copies a native record into a types.Record. Integer fields stay
// integers so classification sees field 1 as a code.
func readRecord(h handle) *types.Record {
	count, _, _ := procMsiRecordGetFieldCount.Call(uintptr(h))
	if int32(count) < 0 {
		return nil
	}
	fields := make([]types.Field, 0, count)
	for i := 1; i <= int(count); i++ {
		if isNull, _, _ := procMsiRecordIsNull.Call(uintptr(h), uintptr(i)); isNull != 0 {
			fields = append(fields, types.Null())
			continue
		}
		v, _, _ := procMsiRecordGetInteger.Call(uintptr(h), uintptr(i))
		if n := int(int32(v)); n != msiNullInteger {
			fields = append(fields, types.Int(n))
			continue
		}
		fields = append(fields, types.Str(recordString(h, i)))
	}
	return types.NewRecord(recordString(h, 0), fields...)
}

// writeRecord builds a native record from rec. The caller closes it.
func writeRecord(rec *types.Record) (handle, error) {
	r, _, _ := procMsiCreateRecord.Call(uintptr(rec.FieldCount()))
	if r == 0 {
		return 0, &engine.Error{Op: "MsiCreateRecord", Code: errFunctionFail}
	}
	h := handle(r)
	for i, f := range rec.Fields() {
		var rc uintptr
		switch f.Kind {
		case types.FieldInteger:
			rc, _, _ = procMsiRecordSetInteger.Call(uintptr(h), uintptr(i), uintptr(f.Int))
		case types.FieldString:
			p, err := utf16(f.Str)
			if err != nil {
				closeHandle(h)
				return 0, err
			}
			rc, _, _ = procMsiRecordSetStringW.Call(uintptr(h), uintptr(i), p)
		default:
			continue
		}
		if err := check("MsiRecordSet", rc); err != nil {
			closeHandle(h)
			return 0, err
		}
	}
	return h, nil
}

// stringParams builds a parameter record binding params to ? markers.
func stringParams(params []string) (handle, error) {
	if len(params) == 0 {
		return 0, nil
	}
	fields := make([]types.Field, len(params))
	for i, p := range params {
		fields[i] = types.Str(p)
	}
	return writeRecord(types.NewRecord("", fields...))
}
