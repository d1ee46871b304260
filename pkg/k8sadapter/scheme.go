package k8sadapter

import (
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
)

// NewScheme returns a runtime.Scheme carrying the core client-go types
// plus the apiextensions v1 CustomResourceDefinition type, so the
// controller-runtime client this Adapter wraps can look up a Chaos-Mesh
// CRD's own definition (e.g. to confirm it's installed) alongside typed
// core objects. Fault and workflow manifests themselves stay unstructured
// and never need a registered Go type.
func NewScheme() (*runtime.Scheme, error) {
	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		return nil, err
	}
	if err := apiextensionsv1.AddToScheme(scheme); err != nil {
		return nil, err
	}
	return scheme, nil
}
