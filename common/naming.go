package common

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Landsat Collection 2 product identifier: LXSS_LLLL_PPPRRR_YYYYMMDD_yyyymmdd_CC_TX
var landsatProductID = regexp.MustCompile(`^L[COTEM]0[4-9]_L[12][A-Z]{2}_\d{6}_\d{8}_\d{8}_\d{2}_(T1|T2|RT)`)

// IsLandsatProductID returns true if name starts with a Landsat collection product identifier
func IsLandsatProductID(name string) bool {
	return landsatProductID.MatchString(name)
}

// Info parses a Landsat product identifier (or a file named after it)
func Info(productID string) (map[string]string, error) {
	productID = filepath.Base(productID)
	if !IsLandsatProductID(productID) {
		return nil, fmt.Errorf("Info: invalid Landsat product identifier: %s", productID)
	}
	sensor := "oli-tirs"
	switch productID[1:2] {
	case "O":
		sensor = "oli"
	case "T":
		sensor = "tirs"
	}
	return map[string]string{
		"PRODUCT_ID":       productID[0:40],
		"MISSION_ID":       productID[0:1] + productID[2:4],
		"SENSOR":           sensor,
		"PROCESSING_LEVEL": productID[5:9],
		"PATH":             productID[10:13],
		"ROW":              productID[13:16],
		"DATE":             productID[17:25],
		"YEAR":             productID[17:21],
		"MONTH":            productID[21:23],
		"DAY":              productID[23:25],
		"PROCESSING_DATE":  productID[26:34],
		"COLLECTION":       productID[35:37],
		"TIER":             productID[38:40],
	}, nil
}

// GetDateFromProductID returns the acquisition date of a Landsat product
func GetDateFromProductID(productID string) (time.Time, error) {
	info, err := Info(productID)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse("20060102", info["DATE"])
}

// ExcludedTokens mark the thermal and quality products sharing the browse naming
var ExcludedTokens = []string{"_TIR", "_QB"}

// HasExcludedToken returns true if name contains one of tokens
func HasExcludedToken(name string, tokens []string) bool {
	for _, token := range tokens {
		if token != "" && strings.Contains(name, token) {
			return true
		}
	}
	return false
}

// BandSuffix returns the suffix of a single-band Landsat file
func BandSuffix(band int) string {
	return fmt.Sprintf("_B%d.TIF", band)
}

// FormatBrackets replaces in <str> all {keys} of <info> by the corresponding value
func FormatBrackets(str string, infos ...map[string]string) string {
	for _, info := range infos {
		for k, v := range info {
			str = strings.ReplaceAll(str, "{"+k+"}", v)
		}
	}
	return str
}
