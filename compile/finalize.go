package compile

import "bec/markup"

// Doctype is the document type declaration every compiled message is
// serialized under. Strict XHTML keeps old mail client renderers out of
// quirks mode.
const Doctype = `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">`

// finalizeDocument produces the wire form of the document: fixed doctype,
// html element rendered, every non-ASCII rune escaped to a numeric reference
// so the result survives 7-bit transports.
func finalizeDocument(doc *markup.Document) (string, error) {
	return doc.SerializeASCII(Doctype)
}
