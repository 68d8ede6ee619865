package enums

import "fmt"

// PartCategory is the fixed set of hardware categories a part can belong to.
type PartCategory string

const (
	PartCategoryProcessor   PartCategory = "Processor (CPU)"
	PartCategoryMemory      PartCategory = "Memory (RAM)"
	PartCategoryGraphics    PartCategory = "Graphic Card (GPU)"
	PartCategoryStorage     PartCategory = "Storage"
	PartCategoryMotherboard PartCategory = "Motherboard"
	PartCategoryPowerSupply PartCategory = "Power Supply"
	PartCategoryCooling     PartCategory = "Cooling System"
	PartCategoryCase        PartCategory = "Computer Case"
	PartCategoryPeripheral  PartCategory = "Peripheral"
)

var validPartCategories = []PartCategory{
	PartCategoryProcessor,
	PartCategoryMemory,
	PartCategoryGraphics,
	PartCategoryStorage,
	PartCategoryMotherboard,
	PartCategoryPowerSupply,
	PartCategoryCooling,
	PartCategoryCase,
	PartCategoryPeripheral,
}

var partCategoryPrefixes = map[PartCategory]string{
	PartCategoryProcessor:   "CPU",
	PartCategoryMemory:      "RAM",
	PartCategoryGraphics:    "GPU",
	PartCategoryStorage:     "SSD",
	PartCategoryMotherboard: "MB",
	PartCategoryPowerSupply: "PSU",
	PartCategoryCooling:     "COOL",
	PartCategoryCase:        "CASE",
	PartCategoryPeripheral:  "PER",
}

// String implements fmt.Stringer.
func (c PartCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known PartCategory.
func (c PartCategory) IsValid() bool {
	for _, candidate := range validPartCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// Prefix returns the category id prefix used when generating part ids.
func (c PartCategory) Prefix() string {
	if prefix, ok := partCategoryPrefixes[c]; ok {
		return prefix
	}
	return "GEN"
}

// ParsePartCategory converts raw input into a PartCategory.
func ParsePartCategory(value string) (PartCategory, error) {
	for _, candidate := range validPartCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid part category %q", value)
}
