package il

// Container header
const (
	Magic   uint32 = 0x6D6C6900 // "\0ilm"
	Version uint32 = 1
)

// Section IDs, in the order they must appear. Custom sections may appear
// anywhere.
const (
	SectionCustom    byte = 0
	SectionModule    byte = 1
	SectionTypeRef   byte = 2
	SectionTypeDef   byte = 3
	SectionMember    byte = 4
	SectionMemberRef byte = 5
	SectionAttribute byte = 6
	SectionCode      byte = 7
)

// Type signature tags
const (
	sigNone        byte = 0
	sigTypeRef     byte = 1
	sigTypeDef     byte = 2
	sigArray       byte = 3
	sigByRef       byte = 4
	sigPointer     byte = 5
	sigGenericInst byte = 6
	sigGenericVar  byte = 7
	sigGenericMVar byte = 8
)

// Attribute argument value tags
const (
	valNil     byte = 0
	valBool    byte = 1
	valInt32   byte = 2
	valInt64   byte = 3
	valFloat64 byte = 4
	valString  byte = 5
	valType    byte = 6
)

// Attribute owner kinds
const (
	ownerType   byte = 0
	ownerField  byte = 1
	ownerMethod byte = 2
	ownerReturn byte = 3
	ownerParam  byte = 4
)

// ldtoken operand kinds
const (
	tokType   byte = 0
	tokMethod byte = 1
	tokField  byte = 2
)

// Table identifies a metadata table in a token.
type Table byte

const (
	TableTypeRef   Table = 0x01
	TableTypeDef   Table = 0x02
	TableField     Table = 0x04
	TableMethod    Table = 0x06
	TableParam     Table = 0x08
	TableMethodRef Table = 0x0A
	TableFieldRef  Table = 0x0B
)

// Token is a metadata token: table in the high byte, 1-based row below.
type Token uint32

// NewToken builds the token for row of table.
func NewToken(table Table, row int) Token {
	return Token(uint32(table)<<24 | uint32(row)&0x00FFFFFF)
}

// Table returns the table the token points into.
func (t Token) Table() Table { return Table(t >> 24) }

// Row returns the 1-based row.
func (t Token) Row() int { return int(t & 0x00FFFFFF) }
