// Package device turns a client user agent into informational session
// metadata.
package device

import (
	"strings"

	"github.com/dmitrijs2005/gophaccount/internal/server/models"
	"github.com/mileusna/useragent"
)

type Detector interface {
	Detect(userAgent string) models.DeviceInfo
}

// UserAgentDetector parses browser/app user agents.
type UserAgentDetector struct{}

func (UserAgentDetector) Detect(userAgent string) models.DeviceInfo {
	if strings.TrimSpace(userAgent) == "" {
		return models.DeviceInfo{}
	}

	ua := useragent.Parse(userAgent)

	info := models.DeviceInfo{
		DeviceModel:   ua.Device,
		DeviceBrand:   brandOf(ua),
		OSName:        ua.OS,
		OSPlatform:    platformOf(ua),
		OSVersion:     ua.OSVersion,
		ClientName:    ua.Name,
		ClientType:    clientTypeOf(ua),
		ClientVersion: ua.Version,
	}
	return info
}

func platformOf(ua useragent.UserAgent) string {
	switch {
	case ua.Mobile:
		return "mobile"
	case ua.Tablet:
		return "tablet"
	case ua.Desktop:
		return "desktop"
	default:
		return ""
	}
}

func clientTypeOf(ua useragent.UserAgent) string {
	switch {
	case ua.Bot:
		return "bot"
	case ua.Name == "":
		return ""
	case ua.IsChrome(), ua.IsFirefox(), ua.IsSafari(), ua.IsEdge(), ua.IsOpera(), ua.IsInternetExplorer():
		return "browser"
	default:
		return "application"
	}
}

func brandOf(ua useragent.UserAgent) string {
	switch ua.OS {
	case useragent.IOS, useragent.MacOS:
		return "Apple"
	case useragent.Windows, useragent.WindowsPhone:
		return "Microsoft"
	}
	if ua.Device != "" {
		if brand, _, ok := strings.Cut(ua.Device, " "); ok {
			return brand
		}
	}
	return ""
}

// Static always reports the same device. Used when detection is off.
type Static models.DeviceInfo

func (s Static) Detect(string) models.DeviceInfo {
	return models.DeviceInfo(s)
}
