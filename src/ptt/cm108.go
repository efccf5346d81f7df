package ptt

/*------------------------------------------------------------------
 *
 * Purpose:   	Use the GPIO pins of a CM108 family USB audio adapter
 *		for PTT.
 *
 * Description:	Many cheap USB audio adapters, and the interfaces built
 *		on them, have spare GPIO pins driven through the HID
 *		interface.  Writing an output report to /dev/hidrawN sets
 *		them.  GPIO 3 is the usual PTT pin.
 *
 *		By default hidraw nodes are readable only by root.  A udev
 *		rule along the lines of
 *
 *		SUBSYSTEM=="hidraw", ATTRS{idVendor}=="0d8c", GROUP="audio", MODE="0660"
 *
 *		lets members of the audio group key the radio.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jochenvg/go-udev"
	"golang.org/x/sys/unix"
)

const DefaultCM108Pin = 3

var ErrNoCM108 = errors.New("no CM108 compatible USB audio adapter found")

// goodDevice reports USB vendor/product IDs known to take the report.
func goodDevice(vid, pid uint16) bool {
	switch vid {
	case 0x0d8c: // C-Media
		return true
	case 0x0c76: // SSS
		return pid == 0x1605 || pid == 0x1607 || pid == 0x160b
	case 0x1209: // All in One Cable
		return pid == 0x7388
	}
	return false
}

// HIDDevice is one hidraw node that belongs to a USB device.
type HIDDevice struct {
	Devnode string
	Vendor  uint16
	Product uint16
	Name    string
}

func (d HIDDevice) Good() bool {
	return goodDevice(d.Vendor, d.Product)
}

/*-------------------------------------------------------------------
 *
 * Name:        Inventory
 *
 * Purpose:    	List hidraw devices with their USB IDs.
 *
 * Description:	udev knows the hidraw node, the USB device it hangs off,
 *		and that device's idVendor and idProduct attributes.
 *
 *--------------------------------------------------------------------*/

func Inventory() ([]HIDDevice, error) {
	var u udev.Udev
	var e = u.NewEnumerate()
	if err := e.AddMatchSubsystem("hidraw"); err != nil {
		return nil, fmt.Errorf("udev: %w", err)
	}

	var devices, err = e.Devices()
	if err != nil {
		return nil, fmt.Errorf("udev: %w", err)
	}

	var found []HIDDevice
	for _, dev := range devices {
		var node = dev.Devnode()
		if node == "" {
			continue
		}
		var parent = dev.ParentWithSubsystemDevtype("usb", "usb_device")
		if parent == nil {
			continue
		}

		found = append(found, HIDDevice{
			Devnode: node,
			Vendor:  parseHex16(parent.SysattrValue("idVendor")),
			Product: parseHex16(parent.SysattrValue("idProduct")),
			Name:    strings.TrimSpace(parent.SysattrValue("product")),
		})
	}
	return found, nil
}

func parseHex16(s string) uint16 {
	var v, err = strconv.ParseUint(strings.TrimSpace(s), 16, 16)
	if err != nil {
		return 0
	}
	return uint16(v)
}

// FindCM108 returns the first suitable hidraw node.
func FindCM108() (string, error) {
	var devices, err = Inventory()
	if err != nil {
		return "", err
	}
	for _, d := range devices {
		if d.Good() {
			return d.Devnode, nil
		}
	}
	return "", ErrNoCM108
}

// CM108 keys with one GPIO pin of a CM108 family adapter.
type CM108 struct {
	Devnode    string
	Recognised bool // USB IDs are on the known good list

	dev    io.WriteCloser
	pin    int
	invert bool
}

// OpenCM108 opens device, or the first adapter found when device is
// empty, and drives GPIO pin (1 to 8, default 3).
func OpenCM108(device string, pin string, invert bool) (*CM108, error) {
	var num = DefaultCM108Pin
	if pin != "" {
		var err error
		num, err = strconv.Atoi(pin)
		if err != nil {
			return nil, fmt.Errorf("CM108 GPIO number %q: %w", pin, err)
		}
	}
	if num < 1 || num > 8 {
		return nil, fmt.Errorf("CM108 GPIO number %d must be in range of 1 thru 8", num)
	}

	if device == "" {
		var err error
		device, err = FindCM108()
		if err != nil {
			return nil, err
		}
	}

	var f, err = os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("CM108 PTT %s: %w", device, err)
	}

	var c = newCM108(f, num, invert)
	c.Devnode = device

	// Anything that takes the report will do, but say so if it is a stranger.
	if info, err := unix.IoctlHIDGetRawInfo(int(f.Fd())); err == nil {
		c.Recognised = goodDevice(uint16(info.Vendor), uint16(info.Product))
	}
	return c, nil
}

func newCM108(dev io.WriteCloser, pin int, invert bool) *CM108 {
	return &CM108{dev: dev, pin: pin, invert: invert}
}

func (c *CM108) Key(on bool) error {
	var mask = byte(1 << (c.pin - 1)) // 1 = output
	var data byte
	if level(on, c.invert) == 1 {
		data = mask
	}
	return writeReport(c.dev, mask, data)
}

func (c *CM108) Close() error {
	return c.dev.Close()
}

// writeReport sends the HID output report.  The leading zero is the report
// number.  Four bytes fail with EPIPE, five work.
func writeReport(w io.Writer, iomask byte, iodata byte) error {
	var report = []byte{0, 0, iodata, iomask, 0}
	var n, err = w.Write(report)
	if err != nil {
		return fmt.Errorf("CM108 write: %w", err)
	}
	if n != len(report) {
		return fmt.Errorf("CM108 write: short write %d of %d", n, len(report))
	}
	return nil
}
