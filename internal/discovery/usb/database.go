// internal/discovery/usb/database.go
package usb

import (
	"github.com/google/gousb"
)

// DeviceDatabase contains the known USB-serial bridge chips. Terminal
// DIN cables are built around one of these converters, so their
// presence ranks a host as likely wired to a terminal.
type DeviceDatabase struct {
	vendors map[gousb.ID]*VendorInfo
}

// VendorInfo contains vendor-specific information
type VendorInfo struct {
	Name     string
	products map[gousb.ID]*ProductInfo
}

// ProductInfo contains product-specific information
type ProductInfo struct {
	Chip       string
	Confidence float64
}

// NewDeviceDatabase creates and initializes the device database
func NewDeviceDatabase() *DeviceDatabase {
	db := &DeviceDatabase{
		vendors: make(map[gousb.ID]*VendorInfo),
	}
	db.initializeDatabase()
	return db
}

// initializeDatabase populates the known bridge chips
func (db *DeviceDatabase) initializeDatabase() {
	// FTDI (0x0403), the usual choice for DIN cable builds
	ftdi := &VendorInfo{
		Name:     "Future Technology Devices International",
		products: make(map[gousb.ID]*ProductInfo),
	}
	ftdi.products[0x6001] = &ProductInfo{Chip: "FT232R", Confidence: 0.80}
	ftdi.products[0x6010] = &ProductInfo{Chip: "FT2232H", Confidence: 0.70}
	ftdi.products[0x6011] = &ProductInfo{Chip: "FT4232H", Confidence: 0.65}
	ftdi.products[0x6014] = &ProductInfo{Chip: "FT232H", Confidence: 0.70}
	ftdi.products[0x6015] = &ProductInfo{Chip: "FT231X", Confidence: 0.80}
	db.vendors[0x0403] = ftdi

	// Prolific (0x067B)
	prolific := &VendorInfo{
		Name:     "Prolific Technology",
		products: make(map[gousb.ID]*ProductInfo),
	}
	prolific.products[0x2303] = &ProductInfo{Chip: "PL2303", Confidence: 0.65}
	prolific.products[0x23A3] = &ProductInfo{Chip: "PL2303GC", Confidence: 0.65}
	db.vendors[0x067B] = prolific

	// Silicon Labs (0x10C4)
	silabs := &VendorInfo{
		Name:     "Silicon Labs",
		products: make(map[gousb.ID]*ProductInfo),
	}
	silabs.products[0xEA60] = &ProductInfo{Chip: "CP2102", Confidence: 0.75}
	silabs.products[0xEA70] = &ProductInfo{Chip: "CP2105", Confidence: 0.70}
	silabs.products[0xEA71] = &ProductInfo{Chip: "CP2108", Confidence: 0.65}
	db.vendors[0x10C4] = silabs

	// QinHeng / WCH (0x1A86)
	wch := &VendorInfo{
		Name:     "QinHeng Electronics",
		products: make(map[gousb.ID]*ProductInfo),
	}
	wch.products[0x7523] = &ProductInfo{Chip: "CH340", Confidence: 0.70}
	wch.products[0x5523] = &ProductInfo{Chip: "CH341", Confidence: 0.65}
	wch.products[0x55D4] = &ProductInfo{Chip: "CH9102", Confidence: 0.65}
	db.vendors[0x1A86] = wch
}

// IsKnownVendor checks if a vendor ID is in the database
func (db *DeviceDatabase) IsKnownVendor(vendorID gousb.ID) bool {
	_, exists := db.vendors[vendorID]
	return exists
}

// GetVendorInfo retrieves vendor information
func (db *DeviceDatabase) GetVendorInfo(vendorID gousb.ID) *VendorInfo {
	return db.vendors[vendorID]
}

// GetProductInfo retrieves product information from vendor
func (vi *VendorInfo) GetProductInfo(productID gousb.ID) *ProductInfo {
	return vi.products[productID]
}

// GetTotalProductCount returns total number of known bridge chips
func (db *DeviceDatabase) GetTotalProductCount() int {
	total := 0
	for _, vendor := range db.vendors {
		total += len(vendor.products)
	}
	return total
}
