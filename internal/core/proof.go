package core

import (
	"fmt"
	"strings"
)

// InvalidProofMessage is shown to the user when a proof is not an image.
const InvalidProofMessage = "Veuillez sélectionner un fichier de type JPG, JPEG ou PNG."

var proofExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// ProofExtension returns the lower-cased extension of name, without the dot.
func ProofExtension(name string) string {
	base := ProofFileName(name)
	i := strings.LastIndexByte(base, '.')
	if i < 0 || i == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[i+1:])
}

// ValidateProofName accepts jpg, jpeg and png files, case-insensitively.
func ValidateProofName(name string) error {
	ext := ProofExtension(name)
	if _, ok := proofExtensions[ext]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidProofType, name)
	}
	return nil
}

// ProofFileName strips any directory part, including browser fake paths
// such as `C:\fakepath\receipt.jpg`.
func ProofFileName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
