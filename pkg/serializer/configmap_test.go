package serializer

import (
	"context"
	"strings"
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func TestParseConfigMapURI(t *testing.T) {
	tests := []struct {
		name          string
		uri           string
		wantNamespace string
		wantName      string
		wantErr       bool
	}{
		{
			name:          "valid URI",
			uri:           "cm://monitoring/aggregate",
			wantNamespace: "monitoring",
			wantName:      "aggregate",
		},
		{
			name:          "valid URI with spaces",
			uri:           "cm://monitoring / aggregate ",
			wantNamespace: "monitoring",
			wantName:      "aggregate",
		},
		{
			name:    "missing scheme",
			uri:     "monitoring/aggregate",
			wantErr: true,
		},
		{
			name:    "wrong scheme",
			uri:     "http://monitoring/aggregate",
			wantErr: true,
		},
		{
			name:    "missing name",
			uri:     "cm://monitoring/",
			wantErr: true,
		},
		{
			name:    "missing namespace",
			uri:     "cm:///aggregate",
			wantErr: true,
		},
		{
			name:    "missing separator",
			uri:     "cm://monitoring",
			wantErr: true,
		},
		{
			name:    "empty URI",
			uri:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			namespace, name, err := parseConfigMapURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseConfigMapURI() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if namespace != tt.wantNamespace || name != tt.wantName {
				t.Errorf("parseConfigMapURI() = (%q, %q), want (%q, %q)",
					namespace, name, tt.wantNamespace, tt.wantName)
			}
		})
	}
}

func TestConfigMapWriter_SerializeJSON(t *testing.T) {
	clientset := fake.NewClientset()
	writer := NewConfigMapWriter("monitoring", "aggregate", FormatJSON).WithClient(clientset)

	doc := testDoc{Name: "aggregate", Jobs: 2}
	if err := writer.Serialize(context.Background(), doc); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	cm, err := clientset.CoreV1().ConfigMaps("monitoring").Get(context.Background(), "aggregate", metav1.GetOptions{})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if cm.Labels["app.kubernetes.io/name"] != "scrape-relay" {
		t.Errorf("unexpected labels: %v", cm.Labels)
	}
	if cm.Data["format"] != "json" {
		t.Errorf("unexpected format key: %q", cm.Data["format"])
	}
	if cm.Data["timestamp"] == "" {
		t.Error("missing timestamp key")
	}
	if !strings.Contains(cm.Data["aggregate.json"], `"name": "aggregate"`) {
		t.Errorf("unexpected document content: %q", cm.Data["aggregate.json"])
	}
}

func TestConfigMapWriter_SerializeYAML(t *testing.T) {
	clientset := fake.NewClientset()
	writer := NewConfigMapWriter("monitoring", "aggregate", FormatYAML).WithClient(clientset)

	if err := writer.Serialize(context.Background(), testDoc{Name: "aggregate"}); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	cm, err := clientset.CoreV1().ConfigMaps("monitoring").Get(context.Background(), "aggregate", metav1.GetOptions{})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !strings.Contains(cm.Data["aggregate.yaml"], "name: aggregate") {
		t.Errorf("unexpected document content: %q", cm.Data["aggregate.yaml"])
	}
}

func TestConfigMapWriter_Overwrites(t *testing.T) {
	clientset := fake.NewClientset()
	writer := NewConfigMapWriter("monitoring", "aggregate", FormatJSON).WithClient(clientset)

	ctx := context.Background()
	if err := writer.Serialize(ctx, testDoc{Name: "first"}); err != nil {
		t.Fatalf("first Serialize failed: %v", err)
	}
	if err := writer.Serialize(ctx, testDoc{Name: "second"}); err != nil {
		t.Fatalf("second Serialize failed: %v", err)
	}

	cm, err := clientset.CoreV1().ConfigMaps("monitoring").Get(ctx, "aggregate", metav1.GetOptions{})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !strings.Contains(cm.Data["aggregate.json"], "second") {
		t.Errorf("expected overwrite, got %q", cm.Data["aggregate.json"])
	}
}

func TestConfigMapWriter_UnknownFormatDefaultsToJSON(t *testing.T) {
	writer := NewConfigMapWriter("monitoring", "aggregate", Format("bogus"))
	if writer.format != FormatJSON {
		t.Errorf("expected JSON fallback, got %v", writer.format)
	}
}

func TestConfigMapWriter_TableRejected(t *testing.T) {
	clientset := fake.NewClientset()
	writer := NewConfigMapWriter("monitoring", "aggregate", FormatTable).WithClient(clientset)

	if err := writer.Serialize(context.Background(), testDoc{}); err == nil {
		t.Error("expected error for table format")
	}
}

func TestConfigMapWriter_Close(t *testing.T) {
	writer := NewConfigMapWriter("monitoring", "aggregate", FormatJSON)
	if err := writer.Close(); err != nil {
		t.Errorf("Close returned %v", err)
	}
}
