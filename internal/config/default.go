package config

// Default returns the deck written on first run: a counter, a clock and a
// folder with a back key.
func Default() *Deck {
	str := func(s string) *string { return &s }
	return &Deck{
		Brightness: DefaultBrightness,
		Profiles: []Profile{
			{
				Name:        "DefaultProfile",
				ProfileType: ProfileNormal,
				Pages: []Page{
					{
						Name: "Home",
						Keys: []Key{
							{Index: 0, Text: str("Code\nDeck")},
							{Index: 1, Plugin: "Counter", Tile: "Counter", Settings: map[string]string{"Step": "1"}},
							{Index: 2, Plugin: "Clock", Tile: "Clock", Settings: map[string]string{"Format": "%H:%M"}},
							{
								Index:   4,
								Text:    str("More"),
								KeyType: KeyPage,
								Profile: "DefaultProfile",
								Page:    "Folder",
							},
						},
					},
					{
						Name: "Folder",
						Keys: []Key{
							{Index: 0, Text: str("BACK"), KeyType: KeyBack},
							{Index: 1, Plugin: "Clock", Tile: "Date"},
						},
					},
				},
			},
			{
				Name:        "Locked",
				ProfileType: ProfileLockScreen,
				Pages: []Page{
					{
						Name: "Locked",
						Keys: []Key{
							{Index: 0, Plugin: "Clock", Tile: "Clock"},
						},
					},
				},
			},
		},
	}
}
