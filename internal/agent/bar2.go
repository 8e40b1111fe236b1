package agent

import (
	"fmt"
	"os"
	"regexp"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/xilinx-labs/sn-ctl-core/internal/register"
)

var busIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{4}:[0-9a-fA-F]{2}:[0-9a-fA-F]{2}\.[0-7]$`)

// ValidateBusID checks the DDDD:BB:DD.F PCI bus address form.
func ValidateBusID(busID string) error {
	if !busIDPattern.MatchString(busID) {
		return fmt.Errorf("bus id %q does not match DDDD:BB:DD.F", busID)
	}
	return nil
}

// mappedBar2 owns the mmap'd resource2 file backing one device's
// register.IO, released on Close.
type mappedBar2 struct {
	file *os.File
	data []byte
	*register.Bar2
}

func (m *mappedBar2) Close() error {
	if m.data != nil {
		_ = unix.Munmap(m.data)
	}
	return m.file.Close()
}

// OpenBar2 mmaps /sys/bus/pci/devices/<bus-id>/resource2 shared,
// read/write, and wraps it as a register.IO.
func OpenBar2(busID string) (io *register.Bar2, closer func() error, err error) {
	if err := ValidateBusID(busID); err != nil {
		return nil, nil, err
	}
	path := fmt.Sprintf("/sys/bus/pci/devices/%s/resource2", busID)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	size := int(st.Size())
	if size == 0 {
		// sysfs resource files normally report zero size; the real
		// BAR2 extent is known out-of-band from lspci. Callers that
		// need a specific size should mmap and reslice themselves;
		// here we assume the common single hardware revision size.
		size = defaultBar2Bytes
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	words := unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
	bar := register.NewBar2(words)
	wrapped := &mappedBar2{file: f, data: data, Bar2: bar}
	return bar, wrapped.Close, nil
}

// defaultBar2Bytes is the fallback mapping size when the kernel
// reports a zero-length resource file, large enough to cover every
// register block this core addresses.
const defaultBar2Bytes = 1 << 20
