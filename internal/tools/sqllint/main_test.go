package main

import "testing"

func TestLintSourceFlagsUnmarkedQueries(t *testing.T) {
	src := "package q\n" +
		"const cols = `id, status`\n" +
		"const QGood = `--sql 0e4f692c-21ca-4e7f-bfc7-9f8bc9497214\nselect ` + cols + ` from generation_jobs;`\n" +
		"const QBad = `select ` + cols + ` from generation_jobs;`\n" +
		"const QPlain = \"update generation_jobs set status = 'FAILED'\"\n" +
		"const note = \"no statement here\"\n"

	vs, err := lintSource("q.go", src)
	if err != nil {
		t.Fatalf("lintSource: %v", err)
	}
	if len(vs) != 2 {
		t.Fatalf("violations = %+v, want 2", vs)
	}
	if vs[0].name != "QBad" || vs[1].name != "QPlain" {
		t.Fatalf("names = %q, %q", vs[0].name, vs[1].name)
	}
}
