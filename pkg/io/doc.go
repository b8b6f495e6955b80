// Package io reads and writes product catalogues, so a product database can
// be seeded, backed up or moved between the SQLite and MongoDB stores.
//
// # Formats
//
// JSON uses the product's own JSON field names inside a top-level object:
//
//	{
//	  "products": [
//	    {"m_number": "M1001", "size": "dracula", "color": "silver", ...}
//	  ]
//	}
//
// CSV has one product per row. Icons are joined with ";" in icon_files and
// the text lines are spread over text_1 to text_3:
//
//	m_number,description,size,color,...,icon_files,text_1,text_2,text_3,...
//	M1001,No Entry,dracula,silver,...,no_entry.svg,NO ENTRY,,,...
//
// [ImportFile] and [ExportFile] choose the format from the file extension.
//
// # Loading
//
// Every product read is normalized and validated before it is returned, and
// a duplicate M Number within one catalogue is rejected. [Load] then writes
// the products to a [product.Store], creating new ones and either skipping or
// overwriting those that already exist.
package io
