// Package celestemap reads and writes binary map files of the form
// used by the Celeste level format, without losing a byte.
//
// # Layout
//
// A document is, in order:
//   - the marker "CELESTE MAP" (varint-prefixed)
//   - the package name (varint-prefixed)
//   - the string table: a u16 count, then that many varint-prefixed strings
//   - the root element
//
// An element is a u16 name index, a u8 attribute count, the attributes
// as (u16 name index, type tag, payload), a u16 child count and the
// children. All integers are little endian.
//
// # Layers
//
// Document, Element and Value form the generic tree; DecodeDocument and
// EncodeDocument convert it to and from bytes. Map, Level, Entity,
// Decal, Rect and Tilemap are typed views over that tree. They keep
// every attribute in place, so
//
//	m, _ := celestemap.Decode(data)
//	out, _ := celestemap.Encode(m)
//
// gives out equal to data. Edits through the typed API only change the
// elements they touch.
//
// # Errors
//
// Load and Decode return *DecodeError, Store and Encode return
// *EncodeError. Both carry the stage and element path; match causes
// with errors.Is against the Err* values.
package celestemap
