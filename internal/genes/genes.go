// Package genes provides the fixed seed corpus used to mint promotional assets.
package genes

import (
	"fmt"
	"math/big"
)

var corpus = [...]string{
	"461318606473215840474968038713412278792841200610013055040007908862876014",
	"512901570795906580689310042942192685302828800779079863559617410586062221",
	"456123814460010858370996918295523736710893964491134685860209207735135662",
	"623347887640772406912616247570945954300391612998914019334437441678817675",
	"623327769702602566148110117488157993388740168622469003102795169878388139",
	"516517468280385478902426949869045996034332056826094284352752576550613389",
	"461303492617760133525700505199185512215446852893161871027943135841299852",
	"516350753935039751872377244600559998302956049058903453328289625078609292",
	"516350706387040918774838507181320473800432871454139137641571763026803053",
	"623315925723314209099500395652252912896485976535230435375457673062846598",
}

// Len is the size of the corpus.
func Len() int {
	return len(corpus)
}

// For returns the gene for index i, cycling through the corpus.
func For(i int) string {
	return corpus[i%len(corpus)]
}

// BigFor returns the gene for index i as an integer ready for ABI encoding.
func BigFor(i int) *big.Int {
	gene, ok := new(big.Int).SetString(For(i), 10)
	if !ok {
		panic(fmt.Sprintf("gene %d is not a decimal integer", i))
	}
	return gene
}
