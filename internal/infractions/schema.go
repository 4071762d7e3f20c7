package infractions

func stringProp() map[string]any { return map[string]any{"type": "string"} }

func personSchema() map[string]any {
	props := map[string]any{}
	for _, k := range []string{"name", "dni", "address", "license", "class", "postal_code", "department", "province"} {
		props[k] = stringProp()
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
}

// CreateRequestSchema is the JSON schema accepted by CreateFromJSON.
func CreateRequestSchema() map[string]any {
	speed := map[string]any{"type": "number", "minimum": 0}
	instant := map[string]any{"type": "string", "format": "date-time", "minLength": 1}
	return map[string]any{
		"$schema":  "https://json-schema.org/draft/2020-12/schema",
		"type":     "object",
		"required": []string{"domain", "issued_at", "measured_speed"},
		"properties": map[string]any{
			"series":           map[string]any{"type": "string", "pattern": "^[A-Za-z]{1,4}$"},
			"domain":           map[string]any{"type": "string", "minLength": 1, "maxLength": 16},
			"type":             stringProp(),
			"issued_at":        instant,
			"measured_speed":   speed,
			"authorized_speed": speed,
			"location":         stringProp(),
			"artery":           stringProp(),
			"lat":              map[string]any{"type": "number", "minimum": -90, "maximum": 90},
			"lng":              map[string]any{"type": "number", "minimum": -180, "maximum": 180},
			"photo_ref":        stringProp(),
			"camera_serial":    stringProp(),
			"vehicle": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"type":  stringProp(),
					"make":  stringProp(),
					"model": stringProp(),
				},
				"additionalProperties": false,
			},
			"driver":      personSchema(),
			"owner":       personSchema(),
			"notes":       stringProp(),
			"status":      stringProp(),
			"notified":    map[string]any{"type": "boolean"},
			"notified_at": instant,
		},
		"additionalProperties": false,
	}
}
