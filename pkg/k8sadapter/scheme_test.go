package k8sadapter

import (
	"testing"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	corev1 "k8s.io/api/core/v1"
)

func TestNewSchemeRegistersCoreAndCRDTypes(t *testing.T) {
	scheme, err := NewScheme()
	if err != nil {
		t.Fatalf("NewScheme() error = %v", err)
	}
	if !scheme.Recognizes(corev1.SchemeGroupVersion.WithKind("Pod")) {
		t.Error("scheme does not recognize core/v1 Pod")
	}
	if !scheme.Recognizes(apiextensionsv1.SchemeGroupVersion.WithKind("CustomResourceDefinition")) {
		t.Error("scheme does not recognize apiextensions/v1 CustomResourceDefinition")
	}
}
