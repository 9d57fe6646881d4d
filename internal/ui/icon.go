package ui

// iconBytes is a 16x16 PNG of a filmstrip split down the middle.
var iconBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0xf3, 0xff, 0x61, 0x00, 0x00, 0x00,
	0x4a, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0x60, 0x80, 0x02, 0x11,
	0x11, 0x91, 0xff, 0xa4, 0x60, 0x06, 0x74, 0xa0, 0xad, 0xad, 0xfd, 0x9f,
	0x14, 0xcc, 0x80, 0x6c, 0x33, 0x48, 0x60, 0xd6, 0xac, 0x59, 0x60, 0x8c,
	0xac, 0xe8, 0xc5, 0x8b, 0x17, 0x60, 0x8c, 0x2c, 0x86, 0xac, 0x0e, 0xec,
	0x12, 0x98, 0x01, 0xd8, 0x30, 0x36, 0x03, 0x90, 0x31, 0x75, 0x0d, 0x18,
	0x06, 0x5e, 0x18, 0x0d, 0xc4, 0x81, 0xf4, 0x02, 0xc5, 0x99, 0x89, 0xd2,
	0xec, 0x0c, 0x00, 0x62, 0xbe, 0xa5, 0x18, 0x26, 0x2e, 0xcb, 0xd8, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}
