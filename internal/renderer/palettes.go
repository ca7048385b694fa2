package renderer

import "image/color"

// Swatch is one palette glyph and the colour the default rasterizer paints it.
type Swatch struct {
	Glyph string
	Color color.RGBA
}

func sw(glyph string, hex uint32) Swatch {
	return Swatch{Glyph: glyph, Color: color.RGBA{uint8(hex >> 16), uint8(hex >> 8), uint8(hex), 255}}
}

// DefaultPalette is used when an unknown palette name is requested.
const DefaultPalette = "standard"

// Placeholder is returned by lookups on a palette that is not ready.
const Placeholder = "❓"

// PaletteSets are the selectable emoji sets.
var PaletteSets = map[string][]Swatch{
	"standard": {
		sw("⬛", 0x000000), sw("⬜", 0xFFFFFF), sw("🟥", 0xDD2E44), sw("🟧", 0xF4900C),
		sw("🟨", 0xFDCB58), sw("🟩", 0x78B159), sw("🟦", 0x55ACEE), sw("🟪", 0xAA8ED6),
		sw("🟫", 0xC1694F), sw("🔴", 0xE0243A), sw("🟠", 0xF5922B), sw("🟡", 0xFAD02C),
		sw("🟢", 0x2FA83A), sw("🔵", 0x1E74D8), sw("🟣", 0x8A4FC7), sw("🟤", 0x8B5A2B),
		sw("⚫", 0x1B1B1B), sw("⚪", 0xE8E8E8), sw("🩶", 0x9A9A9A), sw("🩷", 0xF7A8C4),
		sw("🩵", 0x7DD3F0), sw("🤍", 0xF2F2F2), sw("🖤", 0x2B2B2B), sw("🤎", 0x6D4C41),
	},
	"nature": {
		sw("🌲", 0x2E6B3F), sw("🌳", 0x5C9E31), sw("🌴", 0x77B255), sw("🌵", 0x4E9A06),
		sw("🌿", 0x8BC34A), sw("🍀", 0x3FA535), sw("🍁", 0xD84315), sw("🍂", 0xC8742E),
		sw("🌻", 0xF7C21A), sw("🌼", 0xFCE38A), sw("🌸", 0xF5B5C8), sw("🌺", 0xE8457C),
		sw("🌹", 0xBE1931), sw("🌷", 0xEA596E), sw("🪻", 0x8E6CC7), sw("🌊", 0x3B88C3),
		sw("🌙", 0xFFD983), sw("☀️", 0xFFAC33), sw("⛅", 0xC9D6DF), sw("🌫️", 0xB0BEC5),
		sw("🪨", 0x7D7D7D), sw("🪵", 0x8D5B3A), sw("🍄", 0xD32F2F), sw("🌾", 0xD9B45A),
		sw("🏔️", 0xE1E8ED), sw("🌑", 0x31373D), sw("🔥", 0xF4511E), sw("❄️", 0xBBDEFB),
	},
	"faces": {
		sw("😀", 0xFFCC4D), sw("😃", 0xFFC83D), sw("😄", 0xFFD05A), sw("😁", 0xFFC940),
		sw("😆", 0xFFCB45), sw("😅", 0xFFD35E), sw("😂", 0xF9C23C), sw("🙂", 0xFFCE52),
		sw("😊", 0xFFC55A), sw("😍", 0xF4A13E), sw("🥰", 0xF7A94B), sw("😎", 0xD9A52E),
		sw("🤔", 0xE5B341), sw("😐", 0xEFC04A), sw("😶", 0xF1C653), sw("😴", 0xE8BC4C),
		sw("😡", 0xDA2F47), sw("🥶", 0x5DADEC), sw("🤢", 0x77B255), sw("👽", 0x9CCB7B),
		sw("💀", 0xCCD6DD), sw("👻", 0xF5F8FA), sw("🤖", 0x99AAB5), sw("😈", 0x9266CC),
		sw("🎃", 0xF4900C), sw("🌚", 0x3E4347), sw("🌝", 0xFFD983), sw("🐸", 0x5DA130),
	},
	"symbols": {
		sw("❤️", 0xDD2E44), sw("🧡", 0xF4900C), sw("💛", 0xFDCB58), sw("💚", 0x78B159),
		sw("💙", 0x5DADEC), sw("💜", 0xAA8ED6), sw("🖤", 0x31373D), sw("🤍", 0xE1E8ED),
		sw("⭐", 0xFFAC33), sw("✨", 0xFFD983), sw("⚡", 0xFFCC4D), sw("💧", 0x5DADEC),
		sw("🔶", 0xF4900C), sw("🔷", 0x55ACEE), sw("🔺", 0xDD2E44), sw("🔻", 0xC1272D),
		sw("♦️", 0xBE1931), sw("♠️", 0x292F33), sw("♣️", 0x31373D), sw("♥️", 0xDD2E44),
		sw("⚪", 0xE8E8E8), sw("⚫", 0x1B1B1B), sw("🔘", 0x8899A6), sw("💠", 0x88C9F9),
		sw("☢️", 0xFFCC4D), sw("☯️", 0x66757F), sw("♻️", 0x3E721D), sw("⛔", 0xBE1931),
		sw("🆒", 0x3B88C3), sw("🆗", 0x3B88C3), sw("🈵", 0xDD2E44), sw("🔳", 0x55606B),
	},
}
