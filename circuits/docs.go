// Package circuits holds what every relation of the voting protocol shares:
// the in-circuit ElGamal gadget, conversions from native values and the
// artifact cache where compiled relations and their keys are stored.
//
// The relations themselves live in subpackages:
//
//	voteproof    a ballot encrypts a valid choice under the poll key
//	               scalar: [c1.x, c1.y, c2.x, c2.y, pk.x, pk.y]
//	               vector: N * [c1.x, c1.y, c2.x, c2.y], pk.x, pk.y
//	eligibility  the voter is in the census and the nullifier is theirs
//	               [root, pollContext, nullifier, ballotHash]
//	tallyproof   the published tally decrypts the aggregate under the key
//	               [pk.x, pk.y, aggC1[0..N], aggC2[0..N], tally[0..N]]
//
// Every relation is compiled over BN254, whose scalar field is the base field
// of BabyJubJub, so curve arithmetic is native. Plaintexts are encoded as
// m·G with BaseMul, which works on the bits of m and accepts m = 0.
package circuits
