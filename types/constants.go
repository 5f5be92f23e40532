package types

const (
	// CensusTreeMaxLevels is the number of levels of the census merkle tree.
	CensusTreeMaxLevels = 64
	// CensusKeyLen is the length in bytes of a census leaf key.
	CensusKeyLen = CensusTreeMaxLevels / 8
	// MaxOptions is the largest number of options a poll may have.
	MaxOptions = 16
	// FieldsPerCiphertext is the number of field elements of a ciphertext.
	FieldsPerCiphertext = 4
)
