// SPDX-License-Identifier: BSD-3-Clause

package usb

// GadgetConfig describes the composite gadget identity.
type GadgetConfig struct {
	// Name is the gadget directory name under the configfs gadget root.
	Name string

	// VendorID is the USB vendor ID (e.g. "0x1d6b").
	VendorID string

	// ProductID is the USB product ID (e.g. "0x0104").
	ProductID string

	// SerialNumber is the device serial number string descriptor.
	SerialNumber string

	// Manufacturer is the manufacturer string descriptor.
	Manufacturer string

	// Product is the product string descriptor.
	Product string

	// MaxPower is the configuration bMaxPower in 2 mA units.
	MaxPower int
}

// DefaultGadgetConfig returns the stock gadget identity for the appliance.
func DefaultGadgetConfig() *GadgetConfig {
	return &GadgetConfig{
		Name:         "one-kvm",
		VendorID:     "0x1d6b", // Linux Foundation
		ProductID:    "0x0104", // Multifunction Composite Gadget
		Manufacturer: "One-KVM",
		Product:      "Composite KVM Device",
		MaxPower:     250,
	}
}

// HIDSpec describes one HID function variant.
type HIDSpec struct {
	// Protocol is the bInterfaceProtocol (1 keyboard, 2 mouse, 0 none).
	Protocol int

	// Subclass is the bInterfaceSubClass (1 for boot interface).
	Subclass int

	// ReportLength is the input report size in bytes.
	ReportLength int

	// NoOutEndpoint disables the interrupt-OUT endpoint. Keyboards keep it
	// for LED output reports; everything else runs interrupt-IN only.
	NoOutEndpoint bool

	// Descriptor is the raw HID report descriptor.
	Descriptor []byte
}

// SpecKeyboard returns the boot-protocol keyboard function spec.
func SpecKeyboard() HIDSpec {
	return HIDSpec{
		Protocol:     1,
		Subclass:     1,
		ReportLength: 8,
		Descriptor:   keyboardReportDescriptor,
	}
}

// SpecMouseAbsolute returns the absolute pointer function spec.
func SpecMouseAbsolute() HIDSpec {
	return HIDSpec{
		Protocol:      2,
		Subclass:      0,
		ReportLength:  6,
		NoOutEndpoint: true,
		Descriptor:    mouseAbsReportDescriptor,
	}
}

// SpecMouseRelative returns the boot-protocol relative mouse function spec.
func SpecMouseRelative() HIDSpec {
	return HIDSpec{
		Protocol:      2,
		Subclass:      1,
		ReportLength:  4,
		NoOutEndpoint: true,
		Descriptor:    mouseRelReportDescriptor,
	}
}

// SpecConsumer returns the consumer-control (media key) function spec.
func SpecConsumer() HIDSpec {
	return HIDSpec{
		Protocol:      0,
		Subclass:      0,
		ReportLength:  2,
		NoOutEndpoint: true,
		Descriptor:    consumerReportDescriptor,
	}
}
