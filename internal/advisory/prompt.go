package advisory

import (
	"fmt"

	"github.com/neexbeast/skycast/internal/weather"
)

// Index 0 is reserved by the provider and never labelled.
var aqiLabels = [...]string{"", "Excellent", "Fair", "Moderate", "Poor", "Hazardous"}

// Label names an air-quality ordinal. Anything outside 1–5 is "Unknown".
func Label(index int) string {
	if index < 1 || index >= len(aqiLabels) {
		return "Unknown"
	}
	return aqiLabels[index]
}

const promptTemplate = `The weather in %s is %s°C, feels like %s°C, with %s. Air quality is %s.

Provide a 4-part response formatted exactly like this with HTML tags:
<p><strong>☁️ Atmosphere:</strong> [1-sentence poetic summary]</p>
<p><strong>👕 Wardrobe:</strong> [Practical clothing advice]</p>
<p><strong>🎯 Activity:</strong> [1 ideal indoor or outdoor activity]</p>
<p><strong>🎒 Packing List:</strong> [List 3 essential items to bring today separated by commas]</p>

Do not use markdown blocks, just return the raw HTML tags.`

// BuildPrompt renders the advisory request for the given conditions.
func BuildPrompt(cur *weather.Current, aqi int) string {
	return fmt.Sprintf(promptTemplate,
		cur.City,
		formatTemp(cur.Temperature),
		formatTemp(cur.FeelsLike),
		cur.Description,
		Label(aqi),
	)
}

func formatTemp(v float64) string {
	return fmt.Sprintf("%g", v)
}
