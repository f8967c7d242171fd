package receiver

import "testing"

func TestDecideResumeSkipsWhenHashMatches(t *testing.T) {
	d, err := DecideResume(100, 100, 42, func() (uint64, error) { return 42, nil })
	if err != nil {
		t.Fatalf("DecideResume: %v", err)
	}
	if !d.Skip || d.StartOffset != 100 {
		t.Errorf("got %+v, want Skip=true StartOffset=100", d)
	}
}

func TestDecideResumeOverwritesWhenHashMismatches(t *testing.T) {
	d, err := DecideResume(100, 100, 42, func() (uint64, error) { return 99, nil })
	if err != nil {
		t.Fatalf("DecideResume: %v", err)
	}
	if d.Skip || d.StartOffset != 0 {
		t.Errorf("got %+v, want Skip=false StartOffset=0", d)
	}
}

func TestDecideResumeContinuesPartialFile(t *testing.T) {
	d, err := DecideResume(40, 100, 42, func() (uint64, error) {
		t.Fatal("hash should not be computed for a partial file")
		return 0, nil
	})
	if err != nil {
		t.Fatalf("DecideResume: %v", err)
	}
	if d.Skip || d.StartOffset != 40 {
		t.Errorf("got %+v, want Skip=false StartOffset=40", d)
	}
}

func TestDecideResumeZeroHashAlwaysRestarts(t *testing.T) {
	d, err := DecideResume(100, 100, 0, func() (uint64, error) {
		t.Fatal("hash should not be computed when quickHash is 0")
		return 0, nil
	})
	if err != nil {
		t.Fatalf("DecideResume: %v", err)
	}
	if d.Skip || d.StartOffset != 0 {
		t.Errorf("got %+v, want Skip=false StartOffset=0", d)
	}
}
