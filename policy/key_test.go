package policy

import "testing"

func TestParseKey_Cases(t *testing.T) {
	cases := []struct {
		input string
		want  Key
	}{
		{input: "", want: Key{}},
		{input: "InstanceRunning", want: Key{Name: "InstanceRunning"}},
		{input: "ec2.InstanceRunning", want: Key{Namespace: "ec2", Name: "InstanceRunning"}},
		{input: " ec2.InstanceRunning ", want: Key{Namespace: "ec2", Name: "InstanceRunning"}},
		{input: "ec2.", want: Key{Name: "ec2."}},
		{input: ".InstanceRunning", want: Key{Name: "InstanceRunning"}},
		{input: "ec2 . InstanceRunning", want: Key{Namespace: "ec2", Name: "InstanceRunning"}},
		{input: "s3.Bucket.Exists", want: Key{Namespace: "s3", Name: "Bucket.Exists"}},
	}

	for _, tc := range cases {
		if got := ParseKey(tc.input); got != tc.want {
			t.Fatalf("ParseKey(%q) = %+v, want %+v", tc.input, got, tc.want)
		}
	}
}

func TestKey_String(t *testing.T) {
	cases := []struct {
		key  Key
		want string
	}{
		{key: Key{}, want: ""},
		{key: Key{Name: "TableExists"}, want: "TableExists"},
		{key: Key{Namespace: "dynamodb"}, want: "dynamodb"},
		{key: Key{Namespace: "dynamodb", Name: "TableExists"}, want: "dynamodb.TableExists"},
	}

	for _, tc := range cases {
		if got := tc.key.String(); got != tc.want {
			t.Fatalf("String(%+v) = %q, want %q", tc.key, got, tc.want)
		}
	}
	if !(Key{}).IsZero() {
		t.Fatalf("zero key should report IsZero")
	}
}
