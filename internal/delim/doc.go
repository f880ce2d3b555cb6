// Package delim reads and writes delimited text (CSV, TSV and friends)
// for bulk loading into a database.
//
// The reader never materialises the whole input. It keeps a bounded window
// over the unconsumed tail of the source and refills it one chunk at a time,
// so memory is bounded by the largest field rather than the file size.
//
// # Reading
//
// An [Importer] turns a byte stream into rows:
//
//	imp, err := delim.Open("customers.csv", ",")
//	if err != nil {
//	    return err
//	}
//	defer imp.Close()
//
//	header, err := imp.Header()
//	...
//	for {
//	    row, err := imp.NextRow()
//	    if err != nil {
//	        return err
//	    }
//	    if row.IsEnd() {
//	        break
//	    }
//	    // use row
//	}
//
// Or with range-over-func:
//
//	for row, err := range imp.Rows() {
//	    ...
//	}
//
// # Format
//
//   - Fields are separated by a fixed separator of one or more characters.
//   - Rows end at LF, CRLF or a lone CR.
//   - A field starting with a double quote is quoted: separators and line
//     terminators inside it are literal, and "" stands for one quote.
//   - An unterminated quote swallows the rest of the input as the final
//     field. [WithStrictQuotes] turns this into a [*ParseError].
//
// The end of the stream is signalled by a zero-length [Row], never by an
// error. A row holding a single empty field is an ordinary data row.
//
// # Writing
//
// [Writer] is the inverse: any row it writes is read back unchanged.
package delim
